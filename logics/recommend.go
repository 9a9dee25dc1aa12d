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
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/moviecluster/cluster"
	"github.com/gorse-io/moviecluster/common/heap"
	"github.com/gorse-io/moviecluster/common/log"
	"github.com/gorse-io/moviecluster/common/metrics"
	"github.com/gorse-io/moviecluster/common/parallel"
	"github.com/gorse-io/moviecluster/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// UnknownUserError is returned when a user is not part of the clustered population.
type UnknownUserError struct {
	UserId string
}

func (e *UnknownUserError) Error() string {
	return fmt.Sprintf("user %s is not assigned to any cluster", e.UserId)
}

// Score is a recommended item with the mean rating it received in the cluster.
type Score struct {
	ItemId  string
	Title   string
	Score   float64
	Support int
}

type candidate struct {
	sum   float64
	count int
}

// RecommendScores ranks items rated by the cluster of a user by their mean
// rating. Items the user has already rated are excluded. Equal means are
// ordered by ascending item id. At most count items are ranked, and ranked
// items without a title in the catalog are dropped, so fewer than count
// scores may be returned even if more candidates exist.
func RecommendScores(userId string, ratings []dataset.Rating, catalog dataset.Catalog, assignment *cluster.Assignment, count int) ([]Score, error) {
	var (
		c  int
		ok bool
	)
	if assignment != nil {
		c, ok = assignment.Cluster(userId)
	}
	if !ok {
		metrics.RecommendTotalVec.WithLabelValues(metrics.StatusUnknownUser).Inc()
		return nil, &UnknownUserError{UserId: userId}
	}
	metrics.RecommendTotalVec.WithLabelValues(metrics.StatusSuccess).Inc()
	if count <= 0 {
		return []Score{}, nil
	}

	// items rated by the user
	rated := mapset.NewThreadUnsafeSet[string]()
	for _, r := range ratings {
		if r.UserId == userId {
			rated.Add(r.ItemId)
		}
	}
	// aggregate ratings from the same cluster
	candidates := make(map[string]*candidate)
	for _, r := range ratings {
		if label, ok := assignment.Cluster(r.UserId); !ok || label != c {
			continue
		}
		if rated.Contains(r.ItemId) {
			continue
		}
		if _, exist := candidates[r.ItemId]; !exist {
			candidates[r.ItemId] = &candidate{}
		}
		candidates[r.ItemId].sum += r.Rating
		candidates[r.ItemId].count++
	}
	// rank by mean rating
	filter := heap.NewTopKFilter[string, float64](count, dataset.CompareID)
	for itemId, cand := range candidates {
		filter.Push(itemId, cand.sum/float64(cand.count))
	}
	elems := filter.PopAll()
	scores := make([]Score, 0, len(elems))
	for _, elem := range elems {
		title, ok := catalog.Title(elem.Value)
		if !ok {
			log.Logger().Warn("drop recommended item without title",
				zap.String("user_id", userId),
				zap.String("item_id", elem.Value))
			metrics.DroppedItemsTotal.Inc()
			continue
		}
		scores = append(scores, Score{
			ItemId:  elem.Value,
			Title:   title,
			Score:   elem.Weight,
			Support: candidates[elem.Value].count,
		})
	}
	return scores, nil
}

// Recommend returns titles of items recommended to a user, best first.
func Recommend(userId string, ratings []dataset.Rating, catalog dataset.Catalog, assignment *cluster.Assignment, count int) ([]string, error) {
	scores, err := RecommendScores(userId, ratings, catalog, assignment, count)
	if err != nil {
		return nil, err
	}
	return lo.Map(scores, func(s Score, _ int) string {
		return s.Title
	}), nil
}

// RecommendScoresAll ranks items for many users with nJobs workers. Inputs
// are only read, so they can be shared between workers. The first failure
// cancels the users not started yet.
func RecommendScoresAll(ctx context.Context, users []string, ratings []dataset.Rating, catalog dataset.Catalog,
	assignment *cluster.Assignment, count, nJobs int) (map[string][]Score, error) {
	results := make([][]Score, len(users))
	err := parallel.Parallel(ctx, len(users), nJobs, func(_, jobId int) error {
		scores, err := RecommendScores(users[jobId], ratings, catalog, assignment, count)
		if err != nil {
			return err
		}
		results[jobId] = scores
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	recommendations := make(map[string][]Score, len(users))
	for i, userId := range users {
		recommendations[userId] = results[i]
	}
	return recommendations, nil
}

// RecommendAll returns titles recommended to many users, computed by RecommendScoresAll.
func RecommendAll(ctx context.Context, users []string, ratings []dataset.Rating, catalog dataset.Catalog,
	assignment *cluster.Assignment, count, nJobs int) (map[string][]string, error) {
	scores, err := RecommendScoresAll(ctx, users, ratings, catalog, assignment, count, nJobs)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return lo.MapValues(scores, func(userScores []Score, _ string) []string {
		return lo.Map(userScores, func(s Score, _ int) string {
			return s.Title
		})
	}), nil
}
