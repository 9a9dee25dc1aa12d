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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelStep   = "step"
	LabelStatus = "status"
)

const (
	StepBuildMatrix = "build_matrix"
	StepCluster     = "cluster"

	StatusSuccess     = "success"
	StatusUnknownUser = "unknown_user"
)

var (
	FitStepSecondsVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "moviecluster",
		Subsystem: "pipeline",
		Name:      "fit_step_seconds",
	}, []string{LabelStep})
	MatrixUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "moviecluster",
		Subsystem: "pipeline",
		Name:      "matrix_users",
	})
	MatrixItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "moviecluster",
		Subsystem: "pipeline",
		Name:      "matrix_items",
	})
	EmptyClusters = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "moviecluster",
		Subsystem: "pipeline",
		Name:      "empty_clusters",
	})
	RecommendTotalVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviecluster",
		Subsystem: "recommend",
		Name:      "requests_total",
	}, []string{LabelStatus})
	DroppedItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moviecluster",
		Subsystem: "recommend",
		Name:      "dropped_items_total",
		Help:      "Recommended items dropped because they have no title in the catalog.",
	})
)
