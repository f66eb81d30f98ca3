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

	"github.com/gorse-io/latent/config"
	"github.com/gorse-io/latent/dataset"
	"github.com/juju/errors"
)

// TrainSet is the read-only view of a training set handed to learning algorithms.
// *dataset.TrainingSet implements it.
type TrainSet interface {
	// Len returns the number of known ratings.
	Len() int
	// At returns the k-th known rating in arrival order.
	At(k int) dataset.Rating
	CountUsers() int
	CountItems() int
	Dimensionality() int
	RatingsSum() float64
	RatingsAverage() float64
	Rating(userIndex, itemIndex int32) (dataset.Rating, error)
	UserRatingsAverage(userIndex int32) (float64, error)
	ItemRatingsAverage(itemIndex int32) (float64, error)
	ImplicitFeedback(userIndex, itemIndex int32) (float64, error)
	ImplicitItems(userIndex int32) ([]int32, error)
	ImplicitFeedbackMagnitude(userIndex int32) (float64, error)
	ImplicitFeedbackSum(userIndex int32) (float64, error)
}

var _ TrainSet = (*dataset.TrainingSet)(nil)

// LearnedFactors is the output of a learning algorithm.
type LearnedFactors interface {
	// Predict the rating given by a user to an item.
	Predict(userIndex, itemIndex int32) float64
	CountUsers() int
	CountItems() int
	Dimensionality() int
}

// Algorithm learns factors from a training set. Implementations must not mutate
// the training set.
type Algorithm interface {
	Learn(ctx context.Context, trainSet TrainSet, cfg *config.ModelConfig) (LearnedFactors, error)
}

// AlgorithmFunc adapts an ordinary function to an Algorithm.
type AlgorithmFunc func(ctx context.Context, trainSet TrainSet, cfg *config.ModelConfig) (LearnedFactors, error)

func (f AlgorithmFunc) Learn(ctx context.Context, trainSet TrainSet, cfg *config.ModelConfig) (LearnedFactors, error) {
	return f(ctx, trainSet, cfg)
}

// New creates a built-in algorithm by name.
func New(name string) (Algorithm, error) {
	switch name {
	case "mf":
		return NewBasicMF(), nil
	case "biased_mf":
		return NewBiasedMF(), nil
	case "svdpp":
		return NewSVDpp(), nil
	default:
		return nil, errors.NotFoundf("algorithm %s", name)
	}
}

func checkTrainSet(trainSet TrainSet, cfg *config.ModelConfig) error {
	if trainSet == nil {
		return errors.NotValidf("nil training set")
	}
	if cfg == nil {
		return errors.NotValidf("nil model config")
	}
	if trainSet.CountUsers() == 0 || trainSet.CountItems() == 0 {
		return errors.NotValidf("empty universe")
	}
	if trainSet.Dimensionality() <= 0 {
		return errors.NotValidf("dimensionality %d", trainSet.Dimensionality())
	}
	if cfg.Epochs < 0 || cfg.LearningRate <= 0 {
		return errors.NotValidf("epochs %d and learning rate %v", cfg.Epochs, cfg.LearningRate)
	}
	return nil
}
