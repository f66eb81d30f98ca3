// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for a learning run.
type Config struct {
	Model     ModelConfig     `mapstructure:"model"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

// ModelConfig fixes the user and item universe of a training set and carries the
// hyper-parameters consumed by learning algorithms.
type ModelConfig struct {
	Algorithm      string `mapstructure:"algorithm" validate:"oneof=mf biased_mf svdpp"`
	Users          int    `mapstructure:"users" validate:"gt=0"`
	Items          int    `mapstructure:"items" validate:"gt=0"`
	Dimensionality int    `mapstructure:"dimensionality" validate:"gt=0"`
	// MaxRatings bounds the number of known ratings. Zero means users × items.
	MaxRatings         int     `mapstructure:"max_ratings" validate:"gte=0"`
	Epochs             int     `mapstructure:"epochs" validate:"gt=0"`
	LearningRate       float64 `mapstructure:"learning_rate" validate:"gt=0"`
	Regularization     float64 `mapstructure:"regularization" validate:"gte=0"`
	BiasLearningRate   float64 `mapstructure:"bias_learning_rate" validate:"gt=0"`
	BiasRegularization float64 `mapstructure:"bias_regularization" validate:"gte=0"`
	InitMean           float64 `mapstructure:"init_mean"`
	InitStdDev         float64 `mapstructure:"init_std" validate:"gte=0"`
	Seed               int64   `mapstructure:"seed"`
	// Verbose is the epoch period of progress logs. Zero disables them.
	Verbose int `mapstructure:"verbose" validate:"gte=0"`
}

// Cells returns the number of (user, item) pairs.
func (c *ModelConfig) Cells() int {
	return c.Users * c.Items
}

// Capacity returns the maximum number of known ratings a training set can hold.
func (c *ModelConfig) Capacity() int {
	if c.MaxRatings > 0 {
		return c.MaxRatings
	}
	return c.Cells()
}

// Validate checks field ranges and the relation between capacity and universe size.
func (c *ModelConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.NewNotValid(err, "invalid model config")
	}
	if c.Users > math.MaxInt32/c.Items {
		return errors.NotValidf("universe of %d users and %d items", c.Users, c.Items)
	}
	if c.MaxRatings > c.Cells() {
		return errors.NotValidf("max_ratings %d larger than %d cells", c.MaxRatings, c.Cells())
	}
	return nil
}

// RecommendConfig is the configuration for top-k recommendation.
type RecommendConfig struct {
	TopK         int  `mapstructure:"top_k" validate:"gt=0"`
	Jobs         int  `mapstructure:"jobs" validate:"gt=0"`
	ExcludeRated bool `mapstructure:"exclude_rated"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Algorithm:          "biased_mf",
			Users:              1,
			Items:              1,
			Dimensionality:     10,
			Epochs:             100,
			LearningRate:       0.01,
			Regularization:     0.02,
			BiasLearningRate:   0.01,
			BiasRegularization: 0.02,
			InitMean:           0,
			InitStdDev:         0.1,
			Verbose:            10,
		},
		Recommend: RecommendConfig{
			TopK:         10,
			Jobs:         1,
			ExcludeRated: true,
		},
	}
}

func (config *Config) Validate() error {
	if err := config.Model.Validate(); err != nil {
		return errors.Trace(err)
	}
	if err := validator.New().Struct(&config.Recommend); err != nil {
		return errors.NewNotValid(err, "invalid recommend config")
	}
	return nil
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [model]
	viper.SetDefault("model.algorithm", defaultConfig.Model.Algorithm)
	viper.SetDefault("model.users", defaultConfig.Model.Users)
	viper.SetDefault("model.items", defaultConfig.Model.Items)
	viper.SetDefault("model.dimensionality", defaultConfig.Model.Dimensionality)
	viper.SetDefault("model.max_ratings", defaultConfig.Model.MaxRatings)
	viper.SetDefault("model.epochs", defaultConfig.Model.Epochs)
	viper.SetDefault("model.learning_rate", defaultConfig.Model.LearningRate)
	viper.SetDefault("model.regularization", defaultConfig.Model.Regularization)
	viper.SetDefault("model.bias_learning_rate", defaultConfig.Model.BiasLearningRate)
	viper.SetDefault("model.bias_regularization", defaultConfig.Model.BiasRegularization)
	viper.SetDefault("model.init_mean", defaultConfig.Model.InitMean)
	viper.SetDefault("model.init_std", defaultConfig.Model.InitStdDev)
	viper.SetDefault("model.seed", defaultConfig.Model.Seed)
	viper.SetDefault("model.verbose", defaultConfig.Model.Verbose)
	// [recommend]
	viper.SetDefault("recommend.top_k", defaultConfig.Recommend.TopK)
	viper.SetDefault("recommend.jobs", defaultConfig.Recommend.Jobs)
	viper.SetDefault("recommend.exclude_rated", defaultConfig.Recommend.ExcludeRated)
}

// LoadConfig loads configuration from a toml or yaml file. Environment variables
// prefixed by LATENT_ (e.g. LATENT_MODEL_USERS) override the file.
func LoadConfig(path string) (*Config, error) {
	viper.Reset()
	setDefault()
	viper.SetEnvPrefix("latent")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "read config %s", path)
		}
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
