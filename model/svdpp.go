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

// SVDpp is SVD++, an extension of biased matrix factorization taking into account
// implicit feedback. The prediction \hat{r}_{ui} is set as:
//
//	\hat{r}_{ui} = μ + b_u + b_i + q_i^T(p_u + |N(u)|^{-1/2} \sum_{j \in N(u)} w_{uj} y_j)
//
// N(u) is the implicit feedback of user u with weights w_{uj}, and |N(u)|^{1/2} is
// the euclidean norm of these weights. Users without implicit feedback fall back to
// the items they rated with unit weights. After learning, the bracketed term is
// folded into the user factors of the returned MatrixFactors.
type SVDpp struct{}

func NewSVDpp() *SVDpp {
	return &SVDpp{}
}

// neighborhood is N(u) of a user with weights already scaled by |N(u)|^{-1/2}.
type neighborhood struct {
	items   []int32
	weights []float64
}

func (svd *SVDpp) Learn(ctx context.Context, trainSet TrainSet, cfg *config.ModelConfig) (LearnedFactors, error) {
	if err := checkTrainSet(trainSet, cfg); err != nil {
		return nil, errors.Trace(err)
	}
	rng := newRandomGenerator(cfg.Seed)
	factors := newMatrixFactors(trainSet, rng, cfg.InitMean, cfg.InitStdDev, true)
	if err := initBiases(factors, trainSet); err != nil {
		return nil, errors.Trace(err)
	}
	implFactor := rng.normalMatrix(trainSet.CountItems(), trainSet.Dimensionality(), cfg.InitMean, cfg.InitStdDev) // y_j
	neighborhoods, err := svd.neighborhoods(trainSet)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for userIndex, n := range neighborhoods {
		if len(n.items) > 0 {
			factors.UserPredictable.Set(uint(userIndex))
		}
	}
	// create buffers
	dim := trainSet.Dimensionality()
	a := make([]float64, dim)
	z := make([]float64, dim)
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
			n := neighborhoods[userIndex]
			// z_u = p_u + |N(u)|^{-1/2} \sum w_{uj} y_j
			svd.userVector(z, userFactor, implFactor, n)
			diff := rating.Value - factors.GlobalBias - factors.UserBias[userIndex] - factors.ItemBias[itemIndex] -
				floats.Dot(z, itemFactor)
			loss += diff * diff
			factors.UserBias[userIndex] += biasLr * (diff - biasReg*factors.UserBias[userIndex])
			factors.ItemBias[itemIndex] += biasLr * (diff - biasReg*factors.ItemBias[itemIndex])
			copy(a, itemFactor)
			// q_i <- q_i + \gamma (e_{ui} z_u - \lambda q_i)
			floats.Scale(1-lr*reg, itemFactor)
			floats.AddScaled(itemFactor, lr*diff, z)
			// p_u <- p_u + \gamma (e_{ui} q_i - \lambda p_u)
			floats.Scale(1-lr*reg, userFactor)
			floats.AddScaled(userFactor, lr*diff, a)
			// y_j <- y_j + \gamma (e_{ui} |N(u)|^{-1/2} w_{uj} q_i - \lambda y_j)
			for j, neighbor := range n.items {
				floats.Scale(1-lr*reg, implFactor[neighbor])
				floats.AddScaled(implFactor[neighbor], lr*diff*n.weights[j], a)
			}
		}
		logEpoch("svdpp", cfg, epoch, loss, trainSet.Len())
	}
	// fold implicit factors into user factors
	for userIndex := range factors.UserFactor {
		svd.userVector(z, factors.UserFactor[userIndex], implFactor, neighborhoods[userIndex])
		copy(factors.UserFactor[userIndex], z)
	}
	log.Logger().Info("fit svdpp complete",
		zap.Int("n_ratings", trainSet.Len()),
		zap.Float64("global_bias", factors.GlobalBias),
		zap.Duration("used_time", time.Since(start)))
	return factors, nil
}

func (svd *SVDpp) userVector(dst, userFactor []float64, implFactor [][]float64, n neighborhood) {
	copy(dst, userFactor)
	for j, neighbor := range n.items {
		floats.AddScaled(dst, n.weights[j], implFactor[neighbor])
	}
}

// neighborhoods builds N(u) for every user from implicit feedback, or from rated
// items for users without implicit feedback.
func (svd *SVDpp) neighborhoods(trainSet TrainSet) ([]neighborhood, error) {
	neighborhoods := make([]neighborhood, trainSet.CountUsers())
	var fallback []int32
	for userIndex := int32(0); int(userIndex) < trainSet.CountUsers(); userIndex++ {
		sum, err := trainSet.ImplicitFeedbackSum(userIndex)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if sum == 0 {
			fallback = append(fallback, userIndex)
			continue
		}
		magnitude, err := trainSet.ImplicitFeedbackMagnitude(userIndex)
		if err != nil {
			return nil, errors.Trace(err)
		}
		items, err := trainSet.ImplicitItems(userIndex)
		if err != nil {
			return nil, errors.Trace(err)
		}
		weights := make([]float64, len(items))
		for j, itemIndex := range items {
			w, err := trainSet.ImplicitFeedback(userIndex, itemIndex)
			if err != nil {
				return nil, errors.Trace(err)
			}
			weights[j] = w / magnitude
		}
		neighborhoods[userIndex] = neighborhood{items: items, weights: weights}
	}
	if len(fallback) == 0 {
		return neighborhoods, nil
	}
	// N(u) = R(u) for users without implicit feedback
	isFallback := make([]bool, trainSet.CountUsers())
	for _, userIndex := range fallback {
		isFallback[userIndex] = true
	}
	for k := 0; k < trainSet.Len(); k++ {
		rating := trainSet.At(k)
		if isFallback[rating.UserIndex] {
			n := &neighborhoods[rating.UserIndex]
			n.items = append(n.items, rating.ItemIndex)
		}
	}
	for _, userIndex := range fallback {
		n := &neighborhoods[userIndex]
		if len(n.items) == 0 {
			continue
		}
		n.weights = make([]float64, len(n.items))
		for j := range n.weights {
			n.weights[j] = 1 / math.Sqrt(float64(len(n.items)))
		}
	}
	return neighborhoods, nil
}
