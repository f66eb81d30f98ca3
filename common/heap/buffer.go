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

package heap

import (
	"github.com/juju/errors"
	"golang.org/x/exp/constraints"
)

// Discipline decides which element is kept at the root of a Buffer.
type Discipline int

const (
	// MinHeap keeps the smallest element at the root.
	MinHeap Discipline = iota
	// MaxHeap keeps the largest element at the root.
	MaxHeap
)

func (d Discipline) String() string {
	switch d {
	case MinHeap:
		return "min"
	case MaxHeap:
		return "max"
	default:
		return "unknown"
	}
}

// Buffer is a binary heap backed by a slice whose capacity is fixed at creation.
// Inserting into a full buffer or popping an empty buffer fails instead of growing
// or returning a zero value. A Buffer must not be used by more than one goroutine
// at a time.
type Buffer[T any] struct {
	elems      []T
	capacity   int
	discipline Discipline
	// before reports whether a must be closer to the root than b.
	before   func(a, b T) bool
	released bool
}

// NewBuffer creates a buffer of ordered values with the given discipline.
func NewBuffer[T constraints.Ordered](capacity int, discipline Discipline) (*Buffer[T], error) {
	switch discipline {
	case MinHeap:
		return newBuffer(capacity, discipline, func(a, b T) bool { return a < b })
	case MaxHeap:
		return newBuffer(capacity, discipline, func(a, b T) bool { return a > b })
	default:
		return nil, errors.NotValidf("heap discipline %d", discipline)
	}
}

// NewBufferFunc creates a buffer whose root is the minimum under less. It is used
// for scored items where the values themselves are not ordered.
func NewBufferFunc[T any](capacity int, less func(a, b T) bool) (*Buffer[T], error) {
	if less == nil {
		return nil, errors.NotValidf("nil comparator")
	}
	return newBuffer(capacity, MinHeap, less)
}

func newBuffer[T any](capacity int, discipline Discipline, before func(a, b T) bool) (*Buffer[T], error) {
	if capacity <= 0 {
		return nil, errors.NotValidf("buffer capacity %d", capacity)
	}
	return &Buffer[T]{
		elems:      make([]T, 0, capacity),
		capacity:   capacity,
		discipline: discipline,
		before:     before,
	}, nil
}

// Len returns the number of elements in the buffer.
func (b *Buffer[T]) Len() int {
	return len(b.elems)
}

// Cap returns the fixed capacity of the buffer.
func (b *Buffer[T]) Cap() int {
	return b.capacity
}

// Discipline returns the discipline chosen at creation.
func (b *Buffer[T]) Discipline() Discipline {
	return b.discipline
}

// Insert adds a value and restores heap order. The complexity is O(log n).
func (b *Buffer[T]) Insert(value T) error {
	if b.released {
		return errors.NotValidf("insert into released buffer")
	}
	if len(b.elems) >= b.capacity {
		return errors.QuotaLimitExceededf("buffer capacity %d", b.capacity)
	}
	b.elems = append(b.elems, value)
	b.up(len(b.elems) - 1)
	return nil
}

// Pop removes and returns the root. The complexity is O(log n).
func (b *Buffer[T]) Pop() (T, error) {
	var zero T
	if b.released {
		return zero, errors.NotValidf("pop from released buffer")
	}
	n := len(b.elems)
	if n == 0 {
		return zero, errors.NotFoundf("element in empty buffer")
	}
	root := b.elems[0]
	b.elems[0] = b.elems[n-1]
	b.elems[n-1] = zero
	b.elems = b.elems[:n-1]
	b.down(0)
	return root, nil
}

// Release drops the backing storage. Every later Insert or Pop returns a NotValid
// error.
func (b *Buffer[T]) Release() {
	b.elems = nil
	b.capacity = 0
	b.released = true
}

// top returns the root without removing it.
func (b *Buffer[T]) top() (T, bool) {
	if len(b.elems) == 0 {
		var zero T
		return zero, false
	}
	return b.elems[0], true
}

// replaceTop overwrites the root and sifts it down. The buffer must not be empty.
func (b *Buffer[T]) replaceTop(value T) {
	b.elems[0] = value
	b.down(0)
}

func (b *Buffer[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !b.before(b.elems[i], b.elems[parent]) {
			break
		}
		b.elems[i], b.elems[parent] = b.elems[parent], b.elems[i]
		i = parent
	}
}

func (b *Buffer[T]) down(i int) {
	n := len(b.elems)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && b.before(b.elems[right], b.elems[left]) {
			child = right
		}
		if !b.before(b.elems[child], b.elems[i]) {
			break
		}
		b.elems[i], b.elems[child] = b.elems[child], b.elems[i]
		i = child
	}
}
