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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gorse-io/latent/cmd/version"
	"github.com/gorse-io/latent/common/log"
	"github.com/gorse-io/latent/config"
	"github.com/gorse-io/latent/dataset"
	"github.com/gorse-io/latent/model"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var latentCommand = &cobra.Command{
	Use:   "latent",
	Short: "Learn latent factors from ratings and recommend items.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}

		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)
		defer log.CloseLogger()

		// load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		log.Logger().Info("load config", zap.String("config", configPath))
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		if cmd.PersistentFlags().Changed("top-k") {
			conf.Recommend.TopK, _ = cmd.PersistentFlags().GetInt("top-k")
		}

		// load dataset
		data, err := dataset.NewDataset(&conf.Model)
		if err != nil {
			log.Logger().Fatal("failed to create dataset", zap.Error(err))
		}
		sep, _ := cmd.PersistentFlags().GetString("sep")
		ratingsPath, _ := cmd.PersistentFlags().GetString("ratings")
		if ratingsPath == "" {
			log.Logger().Fatal("ratings file is required")
		}
		if err = loadFile(ratingsPath, "Loading ratings", func(f *progressbar.Reader) error {
			_, err := data.LoadRatings(f, sep)
			return err
		}); err != nil {
			log.Logger().Fatal("failed to load ratings", zap.String("path", ratingsPath), zap.Error(err))
		}
		if implicitPath, _ := cmd.PersistentFlags().GetString("implicit"); implicitPath != "" {
			if err = loadFile(implicitPath, "Loading implicit feedback", func(f *progressbar.Reader) error {
				_, err := data.LoadImplicitFeedback(f, sep)
				return err
			}); err != nil {
				log.Logger().Fatal("failed to load implicit feedback", zap.String("path", implicitPath), zap.Error(err))
			}
		}

		// stop on interrupt
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// learn factors
		algorithm, err := model.New(conf.Model.Algorithm)
		if err != nil {
			log.Logger().Fatal("failed to create algorithm", zap.Error(err))
		}
		trainSet := data.GetTrainingSet()
		factors, err := algorithm.Learn(ctx, trainSet, &conf.Model)
		if err != nil {
			log.Logger().Fatal("failed to learn factors", zap.Error(err))
		}
		log.Logger().Info("learn factors complete",
			zap.String("algorithm", conf.Model.Algorithm),
			zap.Float64("rmse", model.RMSE(factors, trainSet)),
			zap.Float64("mae", model.MAE(factors, trainSet)))

		// recommend
		if userId, _ := cmd.PersistentFlags().GetString("user"); userId != "" {
			if err = recommendUser(data, factors, conf, userId); err != nil {
				log.Logger().Fatal("failed to recommend", zap.String("user_id", userId), zap.Error(err))
			}
			return
		}
		if err = recommendAll(ctx, data, factors, conf); err != nil {
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
	},
}

func loadFile(path, description string, load func(f *progressbar.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return errors.Trace(err)
	}
	bar := progressbar.DefaultBytes(stat.Size(), description)
	pbReader := progressbar.NewReader(f, bar)
	defer pbReader.Close()
	return errors.Trace(load(&pbReader))
}

func recommendUser(data *dataset.Dataset, factors model.LearnedFactors, conf *config.Config, userId string) error {
	userIndex, ok := data.GetUserDict().Lookup(userId)
	if !ok {
		return errors.NotFoundf("user %s", userId)
	}
	items, scores, err := model.Recommend(factors, data.GetTrainingSet(), userIndex, conf.Recommend.TopK, conf.Recommend.ExcludeRated)
	if err != nil {
		return errors.Trace(err)
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "item", "score")
	for i, itemIndex := range items {
		itemId, _ := data.GetItemDict().String(itemIndex)
		if err = table.Append([]string{strconv.Itoa(i + 1), itemId, strconv.FormatFloat(scores[i], 'f', 4, 64)}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func recommendAll(ctx context.Context, data *dataset.Dataset, factors model.LearnedFactors, conf *config.Config) error {
	recommends, err := model.RecommendAll(ctx, factors, data.GetTrainingSet(), conf.Recommend.TopK, conf.Recommend.Jobs, conf.Recommend.ExcludeRated)
	if err != nil {
		return errors.Trace(err)
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("user", "items")
	// users beyond the dictionary were never loaded
	for userIndex := 0; userIndex < data.GetUserDict().Count(); userIndex++ {
		userId, _ := data.GetUserDict().String(int32(userIndex))
		itemIds := lo.Map(recommends[userIndex], func(itemIndex int32, _ int) string {
			itemId, _ := data.GetItemDict().String(itemIndex)
			return itemId
		})
		if err = table.Append([]string{userId, strings.Join(itemIds, ",")}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func init() {
	log.AddFlags(latentCommand.PersistentFlags())
	latentCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	latentCommand.PersistentFlags().BoolP("version", "v", false, "latent version")
	latentCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	latentCommand.PersistentFlags().String("ratings", "", "path of ratings file (user, item, rating)")
	latentCommand.PersistentFlags().String("implicit", "", "path of implicit feedback file (user, item[, weight])")
	latentCommand.PersistentFlags().String("sep", ",", "field separator of input files")
	latentCommand.PersistentFlags().String("user", "", "recommend for a single user")
	latentCommand.PersistentFlags().Int("top-k", 10, "number of recommended items per user")
}

func main() {
	if err := latentCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
