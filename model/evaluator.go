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

import "math"

// RMSE is the root mean square error of factors on the known ratings of a training
// set. It returns 0 for an empty set.
func RMSE(factors LearnedFactors, trainSet TrainSet) float64 {
	if trainSet.Len() == 0 {
		return 0
	}
	var sum float64
	for k := 0; k < trainSet.Len(); k++ {
		rating := trainSet.At(k)
		diff := rating.Value - factors.Predict(rating.UserIndex, rating.ItemIndex)
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(trainSet.Len()))
}

// MAE is the mean absolute error of factors on the known ratings of a training set.
func MAE(factors LearnedFactors, trainSet TrainSet) float64 {
	if trainSet.Len() == 0 {
		return 0
	}
	var sum float64
	for k := 0; k < trainSet.Len(); k++ {
		rating := trainSet.At(k)
		sum += math.Abs(rating.Value - factors.Predict(rating.UserIndex, rating.ItemIndex))
	}
	return sum / float64(trainSet.Len())
}
