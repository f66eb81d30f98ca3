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
	"math/rand"
	"testing"

	"github.com/gorse-io/latent/config"
	"github.com/gorse-io/latent/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUsers = 30
	testItems = 20
)

func newTestConfig(algorithm string) *config.ModelConfig {
	cfg := config.GetDefaultConfig().Model
	cfg.Algorithm = algorithm
	cfg.Users = testUsers
	cfg.Items = testItems
	cfg.Dimensionality = 4
	cfg.Epochs = 100
	cfg.Verbose = 0
	return &cfg
}

// newTestTrainingSet fills about 60% of the cells with ratings of a rank-2 model.
func newTestTrainingSet(t *testing.T, cfg *config.ModelConfig, implicit bool) *dataset.TrainingSet {
	rng := rand.New(rand.NewSource(0))
	userVectors := make([][2]float64, testUsers)
	itemVectors := make([][2]float64, testItems)
	for i := range userVectors {
		userVectors[i] = [2]float64{rng.Float64(), rng.Float64()}
	}
	for i := range itemVectors {
		itemVectors[i] = [2]float64{rng.Float64(), rng.Float64()}
	}
	trainSet, err := dataset.NewTrainingSet(cfg)
	require.NoError(t, err)
	for userIndex := int32(0); userIndex < testUsers; userIndex++ {
		for itemIndex := int32(0); itemIndex < testItems; itemIndex++ {
			if rng.Float64() < 0.6 {
				u, i := userVectors[userIndex], itemVectors[itemIndex]
				value := 1 + 2*(u[0]*i[0]+u[1]*i[1])
				require.NoError(t, trainSet.SetKnownRating(userIndex, itemIndex, value))
			} else if implicit && rng.Float64() < 0.5 {
				require.NoError(t, trainSet.SetImplicitFeedback(userIndex, itemIndex))
			}
		}
	}
	return trainSet
}

type snapshot struct {
	n        int
	sum      float64
	ratings  []dataset.Rating
	implicit []float64
}

func takeSnapshot(trainSet *dataset.TrainingSet) snapshot {
	s := snapshot{n: trainSet.Len(), sum: trainSet.RatingsSum()}
	for k := 0; k < trainSet.Len(); k++ {
		s.ratings = append(s.ratings, trainSet.At(k))
	}
	for userIndex := int32(0); int(userIndex) < trainSet.CountUsers(); userIndex++ {
		for itemIndex := int32(0); int(itemIndex) < trainSet.CountItems(); itemIndex++ {
			w, _ := trainSet.ImplicitFeedback(userIndex, itemIndex)
			s.implicit = append(s.implicit, w)
		}
	}
	return s
}

func TestAlgorithms(t *testing.T) {
	for _, name := range []string{"mf", "biased_mf", "svdpp"} {
		t.Run(name, func(t *testing.T) {
			cfg := newTestConfig(name)
			trainSet := newTestTrainingSet(t, cfg, true)
			before := takeSnapshot(trainSet)
			algorithm, err := New(name)
			require.NoError(t, err)

			// untrained factors
			untrainedCfg := *cfg
			untrainedCfg.Epochs = 0
			untrained, err := algorithm.Learn(context.Background(), trainSet, &untrainedCfg)
			require.NoError(t, err)

			factors, err := algorithm.Learn(context.Background(), trainSet, cfg)
			require.NoError(t, err)
			assert.Equal(t, testUsers, factors.CountUsers())
			assert.Equal(t, testItems, factors.CountItems())
			assert.Equal(t, 4, factors.Dimensionality())
			rmse := RMSE(factors, trainSet)
			assert.False(t, math.IsNaN(rmse))
			assert.Less(t, rmse, RMSE(untrained, trainSet))
			assert.Less(t, MAE(factors, trainSet), MAE(untrained, trainSet))

			// learning is deterministic for a seed
			again, err := algorithm.Learn(context.Background(), trainSet, cfg)
			require.NoError(t, err)
			assert.Equal(t, factors, again)

			// the training set is left untouched
			assert.Equal(t, before, takeSnapshot(trainSet))
		})
	}
}

func TestBiasedMFInitBiases(t *testing.T) {
	cfg := newTestConfig("biased_mf")
	cfg.Users, cfg.Items = 2, 3
	cfg.Epochs = 0
	cfg.InitStdDev = 0
	trainSet, err := dataset.NewTrainingSet(cfg)
	require.NoError(t, err)
	require.NoError(t, trainSet.SetKnownRating(0, 0, 4))
	require.NoError(t, trainSet.SetKnownRating(0, 1, 2))
	require.NoError(t, trainSet.SetKnownRating(1, 0, 5))
	learned, err := NewBiasedMF().Learn(context.Background(), trainSet, cfg)
	require.NoError(t, err)
	factors := learned.(*MatrixFactors)
	assert.InDelta(t, 11.0/3, factors.GlobalBias, 1e-12)
	assert.InDelta(t, 3-11.0/3, factors.UserBias[0], 1e-12)
	assert.InDelta(t, 5-11.0/3, factors.UserBias[1], 1e-12)
	assert.InDelta(t, 4.5-11.0/3, factors.ItemBias[0], 1e-12)
	assert.InDelta(t, 2-11.0/3, factors.ItemBias[1], 1e-12)
	// item 2 has no rating
	assert.Zero(t, factors.ItemBias[2])
	assert.False(t, factors.IsItemPredictable(2))
	assert.True(t, factors.IsItemPredictable(1))
	assert.True(t, factors.IsUserPredictable(1))
	assert.False(t, factors.IsUserPredictable(2))
	assert.False(t, factors.IsItemPredictable(-1))
}

func TestSVDppNeighborhoods(t *testing.T) {
	cfg := newTestConfig("svdpp")
	cfg.Users, cfg.Items = 3, 4
	trainSet, err := dataset.NewTrainingSet(cfg)
	require.NoError(t, err)
	// user 0 has implicit feedback {1,0,1,1}
	require.NoError(t, trainSet.SetImplicitFeedback(0, 0))
	require.NoError(t, trainSet.SetImplicitFeedback(0, 2))
	require.NoError(t, trainSet.SetImplicitFeedback(0, 3))
	require.NoError(t, trainSet.SetKnownRating(0, 1, 3))
	// user 1 falls back to rated items
	require.NoError(t, trainSet.SetKnownRating(1, 0, 4))
	require.NoError(t, trainSet.SetKnownRating(1, 3, 2))
	// user 2 has nothing

	neighborhoods, err := NewSVDpp().neighborhoods(trainSet)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 2, 3}, neighborhoods[0].items)
	for _, w := range neighborhoods[0].weights {
		assert.InDelta(t, 1/math.Sqrt(3), w, 1e-12)
	}
	assert.Equal(t, []int32{0, 3}, neighborhoods[1].items)
	for _, w := range neighborhoods[1].weights {
		assert.InDelta(t, 1/math.Sqrt(2), w, 1e-12)
	}
	assert.Empty(t, neighborhoods[2].items)
}

func TestLearnCancel(t *testing.T) {
	cfg := newTestConfig("mf")
	trainSet := newTestTrainingSet(t, cfg, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, name := range []string{"mf", "biased_mf", "svdpp"} {
		algorithm, err := New(name)
		require.NoError(t, err)
		_, err = algorithm.Learn(ctx, trainSet, cfg)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestLearnInvalid(t *testing.T) {
	cfg := newTestConfig("mf")
	trainSet := newTestTrainingSet(t, cfg, false)
	_, err := NewBasicMF().Learn(context.Background(), nil, cfg)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = NewBiasedMF().Learn(context.Background(), trainSet, nil)
	assert.True(t, errors.Is(err, errors.NotValid))
	badCfg := *cfg
	badCfg.LearningRate = 0
	_, err = NewSVDpp().Learn(context.Background(), trainSet, &badCfg)
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = New("als")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestAlgorithmFunc(t *testing.T) {
	cfg := newTestConfig("mf")
	trainSet := newTestTrainingSet(t, cfg, false)
	var algorithm Algorithm = AlgorithmFunc(func(_ context.Context, trainSet TrainSet, _ *config.ModelConfig) (LearnedFactors, error) {
		return &MatrixFactors{
			UserFactor: make([][]float64, trainSet.CountUsers()),
			ItemFactor: make([][]float64, trainSet.CountItems()),
			GlobalBias: trainSet.RatingsAverage(),
		}, nil
	})
	factors, err := algorithm.Learn(context.Background(), trainSet, cfg)
	require.NoError(t, err)
	assert.InDelta(t, trainSet.RatingsAverage(), factors.Predict(0, 0), 1e-12)
}

func TestMatrixFactorsPredict(t *testing.T) {
	factors := &MatrixFactors{
		UserFactor: [][]float64{{1, 2}},
		ItemFactor: [][]float64{{3, 4}, {0, 1}},
		UserBias:   []float64{0.5},
		ItemBias:   []float64{0.25, -1},
		GlobalBias: 3,
	}
	assert.Equal(t, 3+0.5+0.25+11, factors.Predict(0, 0))
	assert.Equal(t, 3+0.5-1+2.0, factors.Predict(0, 1))
	// unknown user or item falls back to biases
	assert.Equal(t, 3-1.0, factors.Predict(1, 1))
	assert.Equal(t, 3+0.5, factors.Predict(0, 2))
	assert.Equal(t, 3.0, factors.Predict(-1, -1))
}
