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

import "math/rand"

// randomGenerator initializes factors and shuffles ratings.
type randomGenerator struct {
	*rand.Rand
}

func newRandomGenerator(seed int64) randomGenerator {
	return randomGenerator{rand.New(rand.NewSource(seed))}
}

// normalVector makes a vec filled with normal random floats.
func (rng randomGenerator) normalVector(size int, mean, stdDev float64) []float64 {
	ret := make([]float64, size)
	for i := range ret {
		ret[i] = rng.NormFloat64()*stdDev + mean
	}
	return ret
}

// normalMatrix makes a matrix filled with normal random floats.
func (rng randomGenerator) normalMatrix(row, col int, mean, stdDev float64) [][]float64 {
	ret := make([][]float64, row)
	for i := range ret {
		ret[i] = rng.normalVector(col, mean, stdDev)
	}
	return ret
}
