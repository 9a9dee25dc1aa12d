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

package logics

import (
	"context"
	"time"

	"github.com/gorse-io/moviecluster/cluster"
	"github.com/gorse-io/moviecluster/common/log"
	"github.com/gorse-io/moviecluster/common/metrics"
	"github.com/gorse-io/moviecluster/config"
	"github.com/gorse-io/moviecluster/dataset"
	"github.com/gorse-io/moviecluster/matrix"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Pipeline builds the rating matrix and clusters users.
type Pipeline struct {
	config    config.RecommendConfig
	clusterer cluster.Clusterer
}

// NewPipeline creates a pipeline. A nil clusterer is replaced by k-means
// configured from cfg.
func NewPipeline(cfg config.RecommendConfig, clusterer cluster.Clusterer) *Pipeline {
	if clusterer == nil {
		clusterer = &cluster.KMeans{MaxIter: cfg.MaxIter, NInit: cfg.NInit}
	}
	return &Pipeline{config: cfg, clusterer: clusterer}
}

// Snapshot is the read-only result of fitting a pipeline to a dataset.
type Snapshot struct {
	Matrix     *matrix.RatingMatrix
	Assignment *cluster.Assignment

	ratings []dataset.Rating
	catalog dataset.Catalog
	nJobs   int
}

func (p *Pipeline) Fit(d *dataset.Dataset) (*Snapshot, error) {
	start := time.Now()
	m, err := matrix.Build(d.GetRatings())
	if err != nil {
		return nil, errors.Trace(err)
	}
	nUsers, nItems := m.Dims()
	metrics.MatrixUsers.Set(float64(nUsers))
	metrics.MatrixItems.Set(float64(nItems))
	buildTime := time.Since(start)
	metrics.FitStepSecondsVec.WithLabelValues(metrics.StepBuildMatrix).Set(buildTime.Seconds())
	log.Logger().Info("build rating matrix",
		zap.Int("n_users", nUsers),
		zap.Int("n_items", nItems),
		zap.Duration("used_time", buildTime))

	start = time.Now()
	assignment, err := cluster.Assign(m, p.config.NClusters, p.clusterer, p.config.Seed)
	if err != nil {
		return nil, errors.Trace(err)
	}
	clusterTime := time.Since(start)
	sizes := assignment.Sizes()
	metrics.FitStepSecondsVec.WithLabelValues(metrics.StepCluster).Set(clusterTime.Seconds())
	metrics.EmptyClusters.Set(float64(lo.Count(sizes, 0)))
	log.Logger().Info("cluster users",
		zap.Int("n_clusters", p.config.NClusters),
		zap.Ints("cluster_sizes", sizes),
		zap.Duration("used_time", clusterTime))

	return &Snapshot{
		Matrix:     m,
		Assignment: assignment,
		ratings:    d.GetRatings(),
		catalog:    d.GetCatalog(),
		nJobs:      p.config.Jobs,
	}, nil
}

func (s *Snapshot) Recommend(userId string, count int) ([]string, error) {
	return Recommend(userId, s.ratings, s.catalog, s.Assignment, count)
}

func (s *Snapshot) RecommendScores(userId string, count int) ([]Score, error) {
	return RecommendScores(userId, s.ratings, s.catalog, s.Assignment, count)
}

func (s *Snapshot) RecommendScoresAll(ctx context.Context, users []string, count int) (map[string][]Score, error) {
	return RecommendScoresAll(ctx, users, s.ratings, s.catalog, s.Assignment, count, s.nJobs)
}

func (s *Snapshot) RecommendAll(ctx context.Context, users []string, count int) (map[string][]string, error) {
	return RecommendAll(ctx, users, s.ratings, s.catalog, s.Assignment, count, s.nJobs)
}
