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
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configText = `
[model]
algorithm = "svdpp"
users = 943
items = 1682
dimensionality = 20
max_ratings = 100000
epochs = 30
learning_rate = 0.005
regularization = 0.015
bias_learning_rate = 0.007
bias_regularization = 0.005
init_mean = 0.0
init_std = 0.01
seed = 42
verbose = 5

[recommend]
top_k = 20
jobs = 4
exclude_rated = false
`

func writeConfig(t *testing.T, text string) string {
	path := filepath.Join(t.TempDir(), "latent.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, configText))
	require.NoError(t, err)
	// [model]
	assert.Equal(t, "svdpp", config.Model.Algorithm)
	assert.Equal(t, 943, config.Model.Users)
	assert.Equal(t, 1682, config.Model.Items)
	assert.Equal(t, 20, config.Model.Dimensionality)
	assert.Equal(t, 100000, config.Model.MaxRatings)
	assert.Equal(t, 100000, config.Model.Capacity())
	assert.Equal(t, 30, config.Model.Epochs)
	assert.Equal(t, 0.005, config.Model.LearningRate)
	assert.Equal(t, 0.015, config.Model.Regularization)
	assert.Equal(t, 0.007, config.Model.BiasLearningRate)
	assert.Equal(t, 0.005, config.Model.BiasRegularization)
	assert.Equal(t, 0.01, config.Model.InitStdDev)
	assert.Equal(t, int64(42), config.Model.Seed)
	assert.Equal(t, 5, config.Model.Verbose)
	// [recommend]
	assert.Equal(t, 20, config.Recommend.TopK)
	assert.Equal(t, 4, config.Recommend.Jobs)
	assert.False(t, config.Recommend.ExcludeRated)
}

func TestLoadConfigDefault(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "[model]\nusers = 3\nitems = 4\n"))
	require.NoError(t, err)
	defaultConfig := GetDefaultConfig()
	assert.Equal(t, 3, config.Model.Users)
	assert.Equal(t, 4, config.Model.Items)
	assert.Equal(t, 12, config.Model.Capacity())
	assert.Equal(t, defaultConfig.Model.Algorithm, config.Model.Algorithm)
	assert.Equal(t, defaultConfig.Model.Dimensionality, config.Model.Dimensionality)
	assert.Equal(t, defaultConfig.Recommend, config.Recommend)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("LATENT_MODEL_USERS", "7")
	t.Setenv("LATENT_RECOMMEND_TOP_K", "3")
	config, err := LoadConfig(writeConfig(t, configText))
	require.NoError(t, err)
	assert.Equal(t, 7, config.Model.Users)
	assert.Equal(t, 3, config.Recommend.TopK)
}

func TestLoadConfigInvalid(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "[model]\nusers = 0\n"))
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = LoadConfig(writeConfig(t, "[model]\nalgorithm = \"als\"\n"))
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = LoadConfig(writeConfig(t, "[model]\nusers = 2\nitems = 2\nmax_ratings = 5\n"))
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = LoadConfig(writeConfig(t, "[model]\nusers = 100000\nitems = 100000\n"))
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = LoadConfig(writeConfig(t, "[recommend]\ntop_k = 0\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
}
