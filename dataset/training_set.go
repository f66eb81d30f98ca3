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

package dataset

import (
	"math"

	"github.com/gorse-io/latent/config"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// NotRated marks a (user, item) cell without a known rating in the dense lookup.
const NotRated int32 = -1

// MaxCells is the largest users × items universe a training set accepts. Arena
// positions are stored as int32.
const MaxCells = math.MaxInt32

// Rating is a user-item interaction. Known is false for the zero value returned
// for cells that were never rated.
type Rating struct {
	Value     float64
	UserIndex int32
	ItemIndex int32
	Known     bool
}

// TrainingSet stores known ratings in arrival order together with two dense
// users × items matrices: a lookup from a cell to the position of its rating in
// the arena, and implicit feedback indicators.
//
// Ratings are append-only. A TrainingSet must not be used by more than one
// goroutine at a time while it is being filled.
type TrainingSet struct {
	ratings        []Rating  // arena in arrival order
	lookup         []int32   // user*items+item -> arena position or NotRated
	implicit       []float64 // user*items+item -> implicit feedback
	users          int
	items          int
	capacity       int
	dimensionality int
	ratingsSum     float64
	released       bool
}

// NewTrainingSet allocates an empty training set. The capacity is cfg.MaxRatings
// when positive, otherwise users × items.
func NewTrainingSet(cfg *config.ModelConfig) (*TrainingSet, error) {
	if cfg == nil {
		return nil, errors.NotValidf("nil model config")
	}
	if cfg.Users <= 0 || cfg.Items <= 0 {
		return nil, errors.NotValidf("universe of %d users and %d items", cfg.Users, cfg.Items)
	}
	if cfg.Dimensionality <= 0 {
		return nil, errors.NotValidf("dimensionality %d", cfg.Dimensionality)
	}
	if cfg.Users > MaxCells/cfg.Items {
		return nil, errors.NotValidf("universe of %d users and %d items exceeds %d cells", cfg.Users, cfg.Items, MaxCells)
	}
	cells := cfg.Users * cfg.Items
	capacity := cfg.Capacity()
	if capacity < 0 || capacity > cells {
		return nil, errors.NotValidf("capacity %d for %d cells", capacity, cells)
	}
	lookup := make([]int32, cells)
	for i := range lookup {
		lookup[i] = NotRated
	}
	return &TrainingSet{
		ratings:        make([]Rating, 0, capacity),
		lookup:         lookup,
		implicit:       make([]float64, cells),
		users:          cfg.Users,
		items:          cfg.Items,
		capacity:       capacity,
		dimensionality: cfg.Dimensionality,
	}, nil
}

// Release drops the arena and both dense matrices. Every later setter or query
// returns a NotValid error and counters read as zero.
func (set *TrainingSet) Release() {
	set.ratings = nil
	set.lookup = nil
	set.implicit = nil
	set.users = 0
	set.items = 0
	set.capacity = 0
	set.ratingsSum = 0
	set.released = true
}

// SetKnownRating appends a known rating. A second rating for the same cell is
// rejected with an AlreadyExists error and leaves the set unchanged.
func (set *TrainingSet) SetKnownRating(userIndex, itemIndex int32, value float64) error {
	cell, err := set.cell(userIndex, itemIndex)
	if err != nil {
		return errors.Trace(err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.NotValidf("rating value %v", value)
	}
	if set.lookup[cell] != NotRated {
		return errors.AlreadyExistsf("rating of user %d for item %d", userIndex, itemIndex)
	}
	if len(set.ratings) >= set.capacity {
		return errors.QuotaLimitExceededf("training set capacity %d", set.capacity)
	}
	set.lookup[cell] = int32(len(set.ratings))
	set.ratings = append(set.ratings, Rating{
		Value:     value,
		UserIndex: userIndex,
		ItemIndex: itemIndex,
		Known:     true,
	})
	set.ratingsSum += value
	return nil
}

// SetImplicitFeedback marks an interaction between a user and an item, whether or
// not a rating exists for the pair.
func (set *TrainingSet) SetImplicitFeedback(userIndex, itemIndex int32) error {
	return set.SetImplicitFeedbackWeight(userIndex, itemIndex, 1)
}

// SetImplicitFeedbackWeight stores a non-negative implicit feedback indicator.
func (set *TrainingSet) SetImplicitFeedbackWeight(userIndex, itemIndex int32, weight float64) error {
	cell, err := set.cell(userIndex, itemIndex)
	if err != nil {
		return errors.Trace(err)
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return errors.NotValidf("implicit feedback weight %v", weight)
	}
	set.implicit[cell] = weight
	return nil
}

// UserRatingsAverage returns the mean of the known ratings of a user. It scans the
// user's row of the lookup and returns 0 for a user without ratings.
func (set *TrainingSet) UserRatingsAverage(userIndex int32) (float64, error) {
	if err := set.checkUser(userIndex); err != nil {
		return 0, errors.Trace(err)
	}
	var sum float64
	var count int
	for _, pos := range set.userLookup(userIndex) {
		if pos != NotRated {
			sum += set.ratings[pos].Value
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

// ItemRatingsAverage returns the mean of the known ratings of an item. It scans the
// item's column of the lookup and returns 0 for an item without ratings.
func (set *TrainingSet) ItemRatingsAverage(itemIndex int32) (float64, error) {
	if err := set.checkItem(itemIndex); err != nil {
		return 0, errors.Trace(err)
	}
	var sum float64
	var count int
	for cell := int(itemIndex); cell < len(set.lookup); cell += set.items {
		if pos := set.lookup[cell]; pos != NotRated {
			sum += set.ratings[pos].Value
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

// ImplicitFeedbackMagnitude returns the euclidean norm of a user's implicit feedback.
func (set *TrainingSet) ImplicitFeedbackMagnitude(userIndex int32) (float64, error) {
	if err := set.checkUser(userIndex); err != nil {
		return 0, errors.Trace(err)
	}
	squares := lo.SumBy(set.userImplicit(userIndex), func(w float64) float64 { return w * w })
	return math.Sqrt(squares), nil
}

// ImplicitFeedbackSum returns the sum of a user's implicit feedback. Weights are
// non-negative so this is also the L1 norm.
func (set *TrainingSet) ImplicitFeedbackSum(userIndex int32) (float64, error) {
	if err := set.checkUser(userIndex); err != nil {
		return 0, errors.Trace(err)
	}
	return lo.Sum(set.userImplicit(userIndex)), nil
}

// ImplicitFeedback returns the implicit feedback of a user for an item.
func (set *TrainingSet) ImplicitFeedback(userIndex, itemIndex int32) (float64, error) {
	cell, err := set.cell(userIndex, itemIndex)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return set.implicit[cell], nil
}

// ImplicitItems returns the items a user has implicit feedback for, in index order.
func (set *TrainingSet) ImplicitItems(userIndex int32) ([]int32, error) {
	if err := set.checkUser(userIndex); err != nil {
		return nil, errors.Trace(err)
	}
	var items []int32
	for itemIndex, w := range set.userImplicit(userIndex) {
		if w > 0 {
			items = append(items, int32(itemIndex))
		}
	}
	return items, nil
}

// Rating returns the rating of a user for an item. Known is false if the cell was
// never rated.
func (set *TrainingSet) Rating(userIndex, itemIndex int32) (Rating, error) {
	cell, err := set.cell(userIndex, itemIndex)
	if err != nil {
		return Rating{}, errors.Trace(err)
	}
	if pos := set.lookup[cell]; pos != NotRated {
		return set.ratings[pos], nil
	}
	return Rating{UserIndex: userIndex, ItemIndex: itemIndex}, nil
}

// At returns the k-th known rating in arrival order. It panics if k is out of
// [0, Len()).
func (set *TrainingSet) At(k int) Rating {
	return set.ratings[k]
}

// Len returns the number of known ratings.
func (set *TrainingSet) Len() int {
	return len(set.ratings)
}

// Capacity returns the maximum number of known ratings.
func (set *TrainingSet) Capacity() int {
	return set.capacity
}

func (set *TrainingSet) CountUsers() int {
	return set.users
}

func (set *TrainingSet) CountItems() int {
	return set.items
}

// Dimensionality returns the dimension of the joint latent factor space.
func (set *TrainingSet) Dimensionality() int {
	return set.dimensionality
}

// RatingsSum returns the sum of all known ratings.
func (set *TrainingSet) RatingsSum() float64 {
	return set.ratingsSum
}

// RatingsAverage returns the mean of all known ratings, or 0 if there is none.
func (set *TrainingSet) RatingsAverage() float64 {
	if len(set.ratings) == 0 {
		return 0
	}
	return set.ratingsSum / float64(len(set.ratings))
}

func (set *TrainingSet) checkUser(userIndex int32) error {
	if set.released {
		return errors.NotValidf("released training set")
	}
	if userIndex < 0 || int(userIndex) >= set.users {
		return errors.NotValidf("user index %d out of [0, %d)", userIndex, set.users)
	}
	return nil
}

func (set *TrainingSet) checkItem(itemIndex int32) error {
	if set.released {
		return errors.NotValidf("released training set")
	}
	if itemIndex < 0 || int(itemIndex) >= set.items {
		return errors.NotValidf("item index %d out of [0, %d)", itemIndex, set.items)
	}
	return nil
}

func (set *TrainingSet) cell(userIndex, itemIndex int32) (int, error) {
	if err := set.checkUser(userIndex); err != nil {
		return 0, err
	}
	if err := set.checkItem(itemIndex); err != nil {
		return 0, err
	}
	return int(userIndex)*set.items + int(itemIndex), nil
}

func (set *TrainingSet) userLookup(userIndex int32) []int32 {
	begin := int(userIndex) * set.items
	return set.lookup[begin : begin+set.items]
}

func (set *TrainingSet) userImplicit(userIndex int32) []float64 {
	begin := int(userIndex) * set.items
	return set.implicit[begin : begin+set.items]
}
