// Copyright 2025 gorse Project Authors
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

import "github.com/juju/errors"

// FreqDict maps raw user or item IDs to dense indices in [0, limit) and counts how
// often each ID is seen.
type FreqDict struct {
	si    map[string]int32
	is    []string
	cnt   []int
	limit int
}

func NewFreqDict(limit int) *FreqDict {
	return &FreqDict{si: map[string]int32{}, limit: limit}
}

func (d *FreqDict) Count() int {
	return len(d.is)
}

// Id returns the index of s, assigning the next free index to an unseen ID. It
// fails once the dictionary holds limit IDs.
func (d *FreqDict) Id(s string) (int32, error) {
	if y, ok := d.si[s]; ok {
		d.cnt[y]++
		return y, nil
	}
	if len(d.is) >= d.limit {
		return 0, errors.QuotaLimitExceededf("dictionary of %d ids", d.limit)
	}
	y := int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 1)
	return y, nil
}

// Lookup returns the index of s without counting it.
func (d *FreqDict) Lookup(s string) (int32, bool) {
	y, ok := d.si[s]
	return y, ok
}

func (d *FreqDict) String(id int32) (s string, ok bool) {
	if id < 0 || int(id) >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}

func (d *FreqDict) Freq(id int32) int {
	if id < 0 || int(id) >= len(d.cnt) {
		return 0
	}
	return d.cnt[id]
}
