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

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/gorse-io/moviecluster/cmd/version"
	"github.com/gorse-io/moviecluster/common/log"
	"github.com/gorse-io/moviecluster/config"
	"github.com/gorse-io/moviecluster/logics"
	"github.com/gorse-io/moviecluster/storage"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const importBatchSize = 1000

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "moviecluster",
		Short:         "Recommend movies from the tastes of similar users.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			log.SetLogger(cmd.Flags(), debug)
		},
	}
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().String("data", "", "data store (csv://, sqlite://, mysql://, postgres:// or mongodb://), overrides the configuration")
	rootCommand.PersistentFlags().IntP("clusters", "k", 0, "number of user clusters, overrides the configuration")
	rootCommand.PersistentFlags().Int64("seed", 0, "random seed of clustering, overrides the configuration")
	rootCommand.PersistentFlags().Int("jobs", 0, "number of recommendation workers, overrides the configuration")

	recommendCommand := &cobra.Command{
		Use:   "recommend [<user-id>...]",
		Short: "Recommend movies to users",
		Args: func(cmd *cobra.Command, args []string) error {
			if all, _ := cmd.Flags().GetBool("all"); all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: runRecommend,
	}
	recommendCommand.Flags().IntP("count", "n", 0, "number of recommendations, overrides the configuration")
	recommendCommand.Flags().Bool("all", false, "recommend to every user with ratings")

	clustersCommand := &cobra.Command{
		Use:   "clusters",
		Short: "Show sizes of user clusters",
		Args:  cobra.NoArgs,
		RunE:  runClusters,
	}

	importCommand := &cobra.Command{
		Use:   "import",
		Short: "Copy ratings, movies and users between data stores",
		Args:  cobra.NoArgs,
		RunE:  runImport,
	}
	importCommand.Flags().String("from", "", "source data store")
	importCommand.Flags().String("to", "", "target data store")
	_ = importCommand.MarkFlagRequired("from")
	_ = importCommand.MarkFlagRequired("to")

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Show version of moviecluster",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
		},
	}

	rootCommand.AddCommand(recommendCommand, clustersCommand, importCommand, versionCommand)
	return rootCommand
}

// loadConfig loads the configuration file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cmd.Flags().Changed("data") {
		conf.Database.DataStore, _ = cmd.Flags().GetString("data")
	}
	if cmd.Flags().Changed("clusters") {
		conf.Recommend.NClusters, _ = cmd.Flags().GetInt("clusters")
	}
	if cmd.Flags().Changed("seed") {
		conf.Recommend.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("jobs") {
		conf.Recommend.Jobs, _ = cmd.Flags().GetInt("jobs")
	}
	if cmd.Flags().Changed("count") {
		conf.Recommend.NRecommendations, _ = cmd.Flags().GetInt("count")
	}
	if err = conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return conf, nil
}

func fit(ctx context.Context, conf *config.Config) (*logics.Snapshot, error) {
	log.Logger().Info("load dataset", zap.String("data_store", log.RedactDSN(conf.Database.DataStore)))
	db, err := storage.Open(ctx, conf.Database.DataStore)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer db.Close()
	d, err := storage.LoadDataset(ctx, db)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return logics.NewPipeline(conf.Recommend, nil).Fit(d)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	snapshot, err := fit(cmd.Context(), conf)
	if err != nil {
		return err
	}
	users := args
	if all, _ := cmd.Flags().GetBool("all"); all {
		users = snapshot.Matrix.Users()
	}
	results, err := snapshot.RecommendScoresAll(cmd.Context(), users, conf.Recommend.NRecommendations)
	if err != nil {
		return errors.Trace(err)
	}
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("User", "Rank", "Title", "Mean Rating", "Ratings")
	for _, userId := range users {
		for rank, score := range results[userId] {
			if err = table.Append([]string{
				userId,
				strconv.Itoa(rank + 1),
				score.Title,
				strconv.FormatFloat(score.Score, 'f', 2, 64),
				strconv.Itoa(score.Support),
			}); err != nil {
				return errors.Trace(err)
			}
		}
	}
	return errors.Trace(table.Render())
}

func runClusters(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	snapshot, err := fit(cmd.Context(), conf)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Cluster", "Users")
	for c, size := range snapshot.Assignment.Sizes() {
		if err = table.Append([]string{strconv.Itoa(c), strconv.Itoa(size)}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	source, err := storage.Open(ctx, from)
	if err != nil {
		return errors.Trace(err)
	}
	defer source.Close()
	target, err := storage.Open(ctx, to)
	if err != nil {
		return errors.Trace(err)
	}
	defer target.Close()
	if err = target.Init(); err != nil {
		return errors.Trace(err)
	}
	d, err := storage.LoadDataset(ctx, source)
	if err != nil {
		return errors.Trace(err)
	}

	bar := progressbar.NewOptions(d.CountRatings(),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("ratings"))
	for _, chunk := range lo.Chunk(d.GetRatings(), importBatchSize) {
		if err = target.BatchInsertRatings(ctx, chunk); err != nil {
			return errors.Trace(err)
		}
		_ = bar.Add(len(chunk))
	}
	_ = bar.Finish()
	if err = target.BatchInsertItems(ctx, d.GetItems()); err != nil {
		return errors.Trace(err)
	}
	if err = target.BatchInsertUsers(ctx, d.GetUsers()); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("import completed",
		zap.Int("n_ratings", d.CountRatings()),
		zap.Int("n_movies", len(d.GetItems())),
		zap.Int("n_users", len(d.GetUsers())))
	return nil
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		log.Logger().Error("moviecluster failed", zap.Error(err))
		os.Exit(1)
	}
}
