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

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gorse-io/latent/common/log"
	"github.com/gorse-io/latent/config"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Dataset fills a TrainingSet from records keyed by raw user and item IDs.
type Dataset struct {
	trainSet *TrainingSet
	userDict *FreqDict
	itemDict *FreqDict
}

func NewDataset(cfg *config.ModelConfig) (*Dataset, error) {
	trainSet, err := NewTrainingSet(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Dataset{
		trainSet: trainSet,
		userDict: NewFreqDict(cfg.Users),
		itemDict: NewFreqDict(cfg.Items),
	}, nil
}

func (d *Dataset) GetTrainingSet() *TrainingSet {
	return d.trainSet
}

func (d *Dataset) GetUserDict() *FreqDict {
	return d.userDict
}

func (d *Dataset) GetItemDict() *FreqDict {
	return d.itemDict
}

// AddRating inserts a known rating of a user for an item.
func (d *Dataset) AddRating(userId, itemId string, value float64) error {
	userIndex, itemIndex, err := d.index(userId, itemId)
	if err != nil {
		return errors.Trace(err)
	}
	return d.trainSet.SetKnownRating(userIndex, itemIndex, value)
}

// AddImplicitFeedback inserts implicit feedback of a user for an item.
func (d *Dataset) AddImplicitFeedback(userId, itemId string, weight float64) error {
	userIndex, itemIndex, err := d.index(userId, itemId)
	if err != nil {
		return errors.Trace(err)
	}
	return d.trainSet.SetImplicitFeedbackWeight(userIndex, itemIndex, weight)
}

// LoadRatings reads "user<sep>item<sep>rating" lines. Blank lines and lines
// starting with # are skipped. It returns the number of inserted ratings.
func (d *Dataset) LoadRatings(r io.Reader, sep string) (int, error) {
	count, err := d.load(r, sep, 3, func(fields []string) error {
		value, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return errors.Trace(err)
		}
		return d.AddRating(fields[0], fields[1], value)
	})
	if err != nil {
		return count, errors.Trace(err)
	}
	log.Logger().Info("load ratings",
		zap.Int("n_ratings", count),
		zap.Int("n_users", d.userDict.Count()),
		zap.Int("n_items", d.itemDict.Count()),
		zap.Float64("ratings_average", d.trainSet.RatingsAverage()))
	return count, nil
}

// LoadImplicitFeedback reads "user<sep>item[<sep>weight]" lines. The weight
// defaults to 1. It returns the number of inserted records.
func (d *Dataset) LoadImplicitFeedback(r io.Reader, sep string) (int, error) {
	count, err := d.load(r, sep, 2, func(fields []string) error {
		weight := 1.0
		if len(fields) > 2 {
			var err error
			if weight, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err != nil {
				return errors.Trace(err)
			}
		}
		return d.AddImplicitFeedback(fields[0], fields[1], weight)
	})
	if err != nil {
		return count, errors.Trace(err)
	}
	log.Logger().Info("load implicit feedback", zap.Int("n_feedback", count))
	return count, nil
}

func (d *Dataset) load(r io.Reader, sep string, minFields int, handle func([]string) error) (int, error) {
	if utf8.RuneCountInString(sep) != 1 {
		return 0, errors.NotValidf("separator %q", sep)
	}
	sepRune, _ := utf8.DecodeRuneInString(sep)
	count := 0
	err := readLines(bufio.NewScanner(r), sepRune, func(line int, fields []string) error {
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return nil
		}
		if strings.HasPrefix(strings.TrimSpace(fields[0]), "#") {
			return nil
		}
		if len(fields) < minFields {
			return errors.NotValidf("line %d: expect %d fields but get %d", line+1, minFields, len(fields))
		}
		if err := handle(fields); err != nil {
			return errors.Annotatef(err, "line %d", line+1)
		}
		count++
		return nil
	})
	return count, err
}

func (d *Dataset) index(userId, itemId string) (int32, int32, error) {
	userId, itemId = strings.TrimSpace(userId), strings.TrimSpace(itemId)
	if userId == "" || itemId == "" {
		return 0, 0, errors.NotValidf("empty user or item id")
	}
	userIndex, err := d.userDict.Id(userId)
	if err != nil {
		return 0, 0, errors.Annotatef(err, "user %s", userId)
	}
	itemIndex, err := d.itemDict.Id(itemId)
	if err != nil {
		return 0, 0, errors.Annotatef(err, "item %s", itemId)
	}
	return userIndex, itemIndex, nil
}
