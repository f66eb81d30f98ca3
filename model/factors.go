// Copyright 2021 gorse Project Authors
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
	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/floats"
)

// MatrixFactors predicts ratings by
//
//	\hat{r}_{ui} = μ + b_u + b_i + p_u^Tq_i
//
// Biases are empty for models without them. If user u or item i is out of range,
// the prediction falls back to μ.
type MatrixFactors struct {
	UserFactor [][]float64 // p_u
	ItemFactor [][]float64 // q_i
	UserBias   []float64   // b_u
	ItemBias   []float64   // b_i
	GlobalBias float64     // μ
	// Users and items seen during training.
	UserPredictable *bitset.BitSet
	ItemPredictable *bitset.BitSet
	dimensionality  int
}

// newMatrixFactors initializes factors with normal random values and marks users
// and items with known ratings as predictable.
func newMatrixFactors(trainSet TrainSet, rng randomGenerator, mean, stdDev float64, useBias bool) *MatrixFactors {
	factors := &MatrixFactors{
		UserFactor:      rng.normalMatrix(trainSet.CountUsers(), trainSet.Dimensionality(), mean, stdDev),
		ItemFactor:      rng.normalMatrix(trainSet.CountItems(), trainSet.Dimensionality(), mean, stdDev),
		UserPredictable: bitset.New(uint(trainSet.CountUsers())),
		ItemPredictable: bitset.New(uint(trainSet.CountItems())),
		dimensionality:  trainSet.Dimensionality(),
	}
	if useBias {
		factors.UserBias = make([]float64, trainSet.CountUsers())
		factors.ItemBias = make([]float64, trainSet.CountItems())
	}
	for k := 0; k < trainSet.Len(); k++ {
		rating := trainSet.At(k)
		factors.UserPredictable.Set(uint(rating.UserIndex))
		factors.ItemPredictable.Set(uint(rating.ItemIndex))
	}
	return factors
}

func (factors *MatrixFactors) Predict(userIndex, itemIndex int32) float64 {
	ret := factors.GlobalBias
	userKnown := userIndex >= 0 && int(userIndex) < len(factors.UserFactor)
	itemKnown := itemIndex >= 0 && int(itemIndex) < len(factors.ItemFactor)
	if userKnown && len(factors.UserBias) > 0 {
		ret += factors.UserBias[userIndex]
	}
	if itemKnown && len(factors.ItemBias) > 0 {
		ret += factors.ItemBias[itemIndex]
	}
	if userKnown && itemKnown {
		ret += floats.Dot(factors.UserFactor[userIndex], factors.ItemFactor[itemIndex])
	}
	return ret
}

// IsUserPredictable returns false if user has no feedback and its factor never be trained.
func (factors *MatrixFactors) IsUserPredictable(userIndex int32) bool {
	if userIndex < 0 || int(userIndex) >= factors.CountUsers() {
		return false
	}
	return factors.UserPredictable.Test(uint(userIndex))
}

// IsItemPredictable returns false if item has no feedback and its factor never be trained.
func (factors *MatrixFactors) IsItemPredictable(itemIndex int32) bool {
	if itemIndex < 0 || int(itemIndex) >= factors.CountItems() {
		return false
	}
	return factors.ItemPredictable.Test(uint(itemIndex))
}

func (factors *MatrixFactors) CountUsers() int {
	return len(factors.UserFactor)
}

func (factors *MatrixFactors) CountItems() int {
	return len(factors.ItemFactor)
}

func (factors *MatrixFactors) Dimensionality() int {
	return factors.dimensionality
}
