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

package cluster

import (
	"math"
	"math/rand"

	"github.com/gorse-io/moviecluster/common/log"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultMaxIter = 300
	DefaultNInit   = 10
)

// Clusterer partitions vectors into k groups. Implementations must return
// the same labels for the same vectors, k and seed.
type Clusterer interface {
	Cluster(vectors [][]float64, k int, seed int64) ([]int, error)
}

// KMeans is Lloyd's algorithm with k-means++ initialization.
//
// Restart r draws its initial centroids from rand.NewSource(seed + r). The
// restart with the lowest inertia wins and ties keep the earliest restart.
// Each restart stops once no vector changes cluster or after MaxIter rounds.
type KMeans struct {
	MaxIter int
	NInit   int
}

func NewKMeans() *KMeans {
	return &KMeans{MaxIter: DefaultMaxIter, NInit: DefaultNInit}
}

func (km *KMeans) Cluster(vectors [][]float64, k int, seed int64) ([]int, error) {
	if err := validate(len(vectors), k); err != nil {
		return nil, err
	}
	nInit := max(km.NInit, 1)
	maxIter := max(km.MaxIter, 1)
	var (
		bestLabels  []int
		bestInertia = math.Inf(1)
	)
	for run := 0; run < nInit; run++ {
		rng := rand.New(rand.NewSource(seed + int64(run)))
		centroids := initCentroids(vectors, k, rng)
		labels, inertia, iters := lloyd(vectors, centroids, maxIter)
		log.Logger().Debug("k-means run finished",
			zap.Int("run", run),
			zap.Int("iterations", iters),
			zap.Float64("inertia", inertia))
		if inertia < bestInertia {
			bestLabels, bestInertia = labels, inertia
		}
	}
	return bestLabels, nil
}

// initCentroids picks k initial centroids by k-means++ seeding.
func initCentroids(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(vectors)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(vectors[rng.Intn(n)]))
	dist := make([]float64, n)
	for i, v := range vectors {
		dist[i] = squaredDistance(v, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(dist)
		next := 0
		if total == 0 {
			// every vector coincides with a centroid
			next = rng.Intn(n)
		} else {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				next = i
				if target < 0 {
					break
				}
			}
		}
		centroid := clone(vectors[next])
		centroids = append(centroids, centroid)
		for i, v := range vectors {
			dist[i] = min(dist[i], squaredDistance(v, centroid))
		}
	}
	return centroids
}

// lloyd refines centroids in place and returns labels, inertia and the number of rounds.
func lloyd(vectors, centroids [][]float64, maxIter int) ([]int, float64, int) {
	labels := make([]int, len(vectors))
	for i := range labels {
		labels[i] = -1
	}
	iter := 0
	for iter < maxIter {
		iter++
		changed := false
		for i, v := range vectors {
			if c := nearest(v, centroids); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		updateCentroids(vectors, labels, centroids)
	}
	inertia := 0.0
	for i, v := range vectors {
		inertia += squaredDistance(v, centroids[labels[i]])
	}
	return labels, inertia, iter
}

// nearest returns the closest centroid. Ties go to the lowest index.
func nearest(v []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(v, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// updateCentroids moves each centroid to the mean of its members. A centroid
// without members stays where it is.
func updateCentroids(vectors [][]float64, labels []int, centroids [][]float64) {
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i, v := range vectors {
		c := labels[i]
		if sums[c] == nil {
			sums[c] = make([]float64, len(v))
		}
		floats.Add(sums[c], v)
		counts[c]++
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		centroids[c] = sums[c]
	}
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
