// Copyright 2022 gorse Project Authors
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
	"testing"

	"github.com/gorse-io/latent/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFixedFactors scores item i with i for every user.
func newFixedFactors(users, items int) *MatrixFactors {
	factors := &MatrixFactors{
		UserFactor:     make([][]float64, users),
		ItemFactor:     make([][]float64, items),
		dimensionality: 1,
	}
	for i := range factors.UserFactor {
		factors.UserFactor[i] = []float64{1}
	}
	for i := range factors.ItemFactor {
		factors.ItemFactor[i] = []float64{float64(i)}
	}
	return factors
}

func TestRecommend(t *testing.T) {
	factors := newFixedFactors(2, 6)
	items, scores, err := Recommend(factors, nil, 0, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 4, 3}, items)
	assert.Equal(t, []float64{5, 4, 3}, scores)

	// k larger than the number of items
	items, _, err = Recommend(factors, nil, 1, 10, false)
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 4, 3, 2, 1, 0}, items)

	// non-positive k
	items, scores, err = Recommend(factors, nil, 1, 0, false)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, scores)

	_, _, err = Recommend(factors, nil, 2, 3, false)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, _, err = Recommend(factors, nil, 0, 3, true)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestRecommendExcludeRated(t *testing.T) {
	cfg := newTestConfig("mf")
	cfg.Users, cfg.Items = 2, 6
	trainSet, err := dataset.NewTrainingSet(cfg)
	require.NoError(t, err)
	require.NoError(t, trainSet.SetKnownRating(0, 5, 1))
	require.NoError(t, trainSet.SetKnownRating(0, 3, 1))
	require.NoError(t, trainSet.SetKnownRating(1, 0, 1))
	factors := newFixedFactors(2, 6)

	items, _, err := Recommend(factors, trainSet, 0, 3, true)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 2, 1}, items)
	items, _, err = Recommend(factors, trainSet, 0, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 4, 3}, items)

	trainSet.Release()
	_, _, err = Recommend(factors, trainSet, 0, 3, true)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestRecommendAll(t *testing.T) {
	cfg := newTestConfig("mf")
	cfg.Users, cfg.Items = 50, 8
	trainSet, err := dataset.NewTrainingSet(cfg)
	require.NoError(t, err)
	for userIndex := int32(0); userIndex < 50; userIndex++ {
		require.NoError(t, trainSet.SetKnownRating(userIndex, userIndex%8, 1))
	}
	factors := newFixedFactors(50, 8)

	recommends, err := RecommendAll(context.Background(), factors, trainSet, 2, 4, true)
	require.NoError(t, err)
	require.Len(t, recommends, 50)
	for userIndex, items := range recommends {
		expected, _, err := Recommend(factors, trainSet, int32(userIndex), 2, true)
		require.NoError(t, err)
		assert.Equal(t, expected, items)
		assert.NotContains(t, items, int32(userIndex%8))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RecommendAll(ctx, factors, trainSet, 2, 4, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate(t *testing.T) {
	cfg := newTestConfig("mf")
	cfg.Users, cfg.Items = 1, 3
	trainSet, err := dataset.NewTrainingSet(cfg)
	require.NoError(t, err)
	factors := newFixedFactors(1, 3)
	assert.Zero(t, RMSE(factors, trainSet))
	assert.Zero(t, MAE(factors, trainSet))

	require.NoError(t, trainSet.SetKnownRating(0, 0, 3))
	require.NoError(t, trainSet.SetKnownRating(0, 2, 1))
	// errors are 3 and -1
	assert.InDelta(t, 2.2360679775, RMSE(factors, trainSet), 1e-9)
	assert.InDelta(t, 2.0, MAE(factors, trainSet), 1e-12)
}
