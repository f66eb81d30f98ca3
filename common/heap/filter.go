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

package heap

import (
	"golang.org/x/exp/constraints"
)

// Elem is a value with its weight.
type Elem[T any, W constraints.Ordered] struct {
	Value  T
	Weight W
}

// TopKFilter filters out top k items with maximum weights.
type TopKFilter[T any, W constraints.Ordered] struct {
	buf *Buffer[Elem[T, W]]
	k   int
}

// NewTopKFilter creates a top k filter. A filter with non-positive k keeps nothing.
func NewTopKFilter[T any, W constraints.Ordered](k int) *TopKFilter[T, W] {
	filter := &TopKFilter[T, W]{k: k}
	if k > 0 {
		// the root is the lightest element kept so far
		filter.buf, _ = NewBufferFunc(k, func(a, b Elem[T, W]) bool {
			return a.Weight < b.Weight
		})
	}
	return filter
}

// Len returns the number of kept items.
func (filter *TopKFilter[T, W]) Len() int {
	if filter.buf == nil {
		return 0
	}
	return filter.buf.Len()
}

// Push offers an item to the filter. The complexity is O(log k).
func (filter *TopKFilter[T, W]) Push(item T, weight W) {
	if filter.buf == nil {
		return
	}
	elem := Elem[T, W]{Value: item, Weight: weight}
	if filter.buf.Len() < filter.k {
		// cannot fail: the buffer is not full
		_ = filter.buf.Insert(elem)
		return
	}
	if lightest, _ := filter.buf.top(); lightest.Weight < weight {
		filter.buf.replaceTop(elem)
	}
}

// PopAll pops all items in the filter with decreasing weights.
func (filter *TopKFilter[T, W]) PopAll() []Elem[T, W] {
	elems := make([]Elem[T, W], filter.Len())
	for i := len(elems) - 1; i >= 0; i-- {
		elems[i], _ = filter.buf.Pop()
	}
	return elems
}

// PopAllValues pops all items in the filter with decreasing weights and drops weights.
func (filter *TopKFilter[T, W]) PopAllValues() []T {
	values := make([]T, filter.Len())
	for i := len(values) - 1; i >= 0; i-- {
		elem, _ := filter.buf.Pop()
		values[i] = elem.Value
	}
	return values
}
