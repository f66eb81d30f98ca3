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

package model

import (
	"context"
	"math"
	"time"

	"github.com/gorse-io/latent/common/log"
	"github.com/gorse-io/latent/config"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// BasicMF is the plain matrix factorization trained by stochastic gradient descent.
// The prediction \hat{r}_{ui} is set as:
//
//	\hat{r}_{ui} = p_u^Tq_i
type BasicMF struct{}

func NewBasicMF() *BasicMF {
	return &BasicMF{}
}

func (mf *BasicMF) Learn(ctx context.Context, trainSet TrainSet, cfg *config.ModelConfig) (LearnedFactors, error) {
	if err := checkTrainSet(trainSet, cfg); err != nil {
		return nil, errors.Trace(err)
	}
	rng := newRandomGenerator(cfg.Seed)
	factors := newMatrixFactors(trainSet, rng, cfg.InitMean, cfg.InitStdDev, false)
	// create buffers
	a := make([]float64, trainSet.Dimensionality())
	lr, reg := cfg.LearningRate, cfg.Regularization
	start := time.Now()
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		var loss float64
		for _, k := range rng.Perm(trainSet.Len()) {
			rating := trainSet.At(k)
			userFactor := factors.UserFactor[rating.UserIndex]
			itemFactor := factors.ItemFactor[rating.ItemIndex]
			// e_{ui} = r - \hat r
			diff := rating.Value - floats.Dot(userFactor, itemFactor)
			loss += diff * diff
			// p_u <- p_u + \gamma (e_{ui} q_i - \lambda p_u)
			copy(a, userFactor)
			floats.Scale(1-lr*reg, userFactor)
			floats.AddScaled(userFactor, lr*diff, itemFactor)
			// q_i <- q_i + \gamma (e_{ui} p_u - \lambda q_i)
			floats.Scale(1-lr*reg, itemFactor)
			floats.AddScaled(itemFactor, lr*diff, a)
		}
		logEpoch("mf", cfg, epoch, loss, trainSet.Len())
	}
	log.Logger().Info("fit mf complete",
		zap.Int("n_ratings", trainSet.Len()),
		zap.Duration("used_time", time.Since(start)))
	return factors, nil
}

// BiasedMF adds global, user and item biases to matrix factorization. The
// prediction \hat{r}_{ui} is set as:
//
//	\hat{r}_{ui} = μ + b_u + b_i + p_u^Tq_i
//
// μ is the mean of known ratings. b_u and b_i start from the deviation of the user
// and item averages from μ.
type BiasedMF struct{}

func NewBiasedMF() *BiasedMF {
	return &BiasedMF{}
}

func (mf *BiasedMF) Learn(ctx context.Context, trainSet TrainSet, cfg *config.ModelConfig) (LearnedFactors, error) {
	if err := checkTrainSet(trainSet, cfg); err != nil {
		return nil, errors.Trace(err)
	}
	rng := newRandomGenerator(cfg.Seed)
	factors := newMatrixFactors(trainSet, rng, cfg.InitMean, cfg.InitStdDev, true)
	if err := initBiases(factors, trainSet); err != nil {
		return nil, errors.Trace(err)
	}
	// create buffers
	a := make([]float64, trainSet.Dimensionality())
	lr, reg := cfg.LearningRate, cfg.Regularization
	biasLr, biasReg := cfg.BiasLearningRate, cfg.BiasRegularization
	start := time.Now()
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		var loss float64
		for _, k := range rng.Perm(trainSet.Len()) {
			rating := trainSet.At(k)
			userIndex, itemIndex := rating.UserIndex, rating.ItemIndex
			userFactor := factors.UserFactor[userIndex]
			itemFactor := factors.ItemFactor[itemIndex]
			diff := rating.Value - factors.Predict(userIndex, itemIndex)
			loss += diff * diff
			// b_u <- b_u + \gamma (e_{ui} - \lambda b_u)
			factors.UserBias[userIndex] += biasLr * (diff - biasReg*factors.UserBias[userIndex])
			// b_i <- b_i + \gamma (e_{ui} - \lambda b_i)
			factors.ItemBias[itemIndex] += biasLr * (diff - biasReg*factors.ItemBias[itemIndex])
			copy(a, userFactor)
			floats.Scale(1-lr*reg, userFactor)
			floats.AddScaled(userFactor, lr*diff, itemFactor)
			floats.Scale(1-lr*reg, itemFactor)
			floats.AddScaled(itemFactor, lr*diff, a)
		}
		logEpoch("biased_mf", cfg, epoch, loss, trainSet.Len())
	}
	log.Logger().Info("fit biased_mf complete",
		zap.Int("n_ratings", trainSet.Len()),
		zap.Float64("global_bias", factors.GlobalBias),
		zap.Duration("used_time", time.Since(start)))
	return factors, nil
}

// initBiases sets μ to the mean rating and biases of rated users and items to the
// deviation of their averages from μ.
func initBiases(factors *MatrixFactors, trainSet TrainSet) error {
	factors.GlobalBias = trainSet.RatingsAverage()
	for userIndex := int32(0); int(userIndex) < trainSet.CountUsers(); userIndex++ {
		if !factors.IsUserPredictable(userIndex) {
			continue
		}
		average, err := trainSet.UserRatingsAverage(userIndex)
		if err != nil {
			return errors.Trace(err)
		}
		factors.UserBias[userIndex] = average - factors.GlobalBias
	}
	for itemIndex := int32(0); int(itemIndex) < trainSet.CountItems(); itemIndex++ {
		if !factors.IsItemPredictable(itemIndex) {
			continue
		}
		average, err := trainSet.ItemRatingsAverage(itemIndex)
		if err != nil {
			return errors.Trace(err)
		}
		factors.ItemBias[itemIndex] = average - factors.GlobalBias
	}
	return nil
}

func logEpoch(name string, cfg *config.ModelConfig, epoch int, loss float64, n int) {
	if cfg.Verbose <= 0 || n == 0 || (epoch%cfg.Verbose != 0 && epoch != cfg.Epochs) {
		return
	}
	log.Logger().Info("fit "+name,
		zap.Int("epoch", epoch),
		zap.Int("n_epochs", cfg.Epochs),
		zap.Float64("train_rmse", math.Sqrt(loss/float64(n))))
}
