// Copyright 2026 gorse Project Authors
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

	"github.com/gorse-io/latent/common/heap"
	"github.com/gorse-io/latent/common/parallel"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Recommend returns the k items with the highest predicted ratings for a user, in
// decreasing order of score. Items the user already rated are skipped when
// excludeRated is set, in which case trainSet must not be nil.
func Recommend(factors LearnedFactors, trainSet TrainSet, userIndex int32, k int, excludeRated bool) ([]int32, []float64, error) {
	if userIndex < 0 || int(userIndex) >= factors.CountUsers() {
		return nil, nil, errors.NotValidf("user index %d out of [0, %d)", userIndex, factors.CountUsers())
	}
	if excludeRated && trainSet == nil {
		return nil, nil, errors.NotValidf("nil training set")
	}
	filter := heap.NewTopKFilter[int32, float64](k)
	for itemIndex := int32(0); int(itemIndex) < factors.CountItems(); itemIndex++ {
		if excludeRated {
			rating, err := trainSet.Rating(userIndex, itemIndex)
			if err != nil {
				return nil, nil, errors.Trace(err)
			}
			if rating.Known {
				continue
			}
		}
		filter.Push(itemIndex, factors.Predict(userIndex, itemIndex))
	}
	elems := filter.PopAll()
	items := lo.Map(elems, func(e heap.Elem[int32, float64], _ int) int32 { return e.Value })
	scores := lo.Map(elems, func(e heap.Elem[int32, float64], _ int) float64 { return e.Weight })
	return items, scores, nil
}

// RecommendAll runs Recommend for every user with nJobs workers. Each user gets its
// own filter, and factors and trainSet are only read.
func RecommendAll(ctx context.Context, factors LearnedFactors, trainSet TrainSet, k, nJobs int, excludeRated bool) ([][]int32, error) {
	recommends := make([][]int32, factors.CountUsers())
	err := parallel.Parallel(ctx, factors.CountUsers(), nJobs, func(_, userIndex int) error {
		items, _, err := Recommend(factors, trainSet, int32(userIndex), k, excludeRated)
		if err != nil {
			return errors.Trace(err)
		}
		recommends[userIndex] = items
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return recommends, nil
}
