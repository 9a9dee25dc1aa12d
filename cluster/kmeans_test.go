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
	"math/rand"
	"testing"

	"github.com/gorse-io/moviecluster/common/log"
	"github.com/gorse-io/moviecluster/dataset"
	"github.com/gorse-io/moviecluster/matrix"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func init() {
	log.CloseLogger()
}

func randomVectors(n, dim int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float64, n)
	for i := range vectors {
		vectors[i] = make([]float64, dim)
		for j := range vectors[i] {
			if rng.Intn(3) == 0 {
				vectors[i][j] = float64(rng.Intn(5) + 1)
			}
		}
	}
	return vectors
}

func TestKMeansSeparated(t *testing.T) {
	vectors := [][]float64{
		{0, 0}, {10, 10}, {0.2, 0}, {10.2, 9.9}, {0, 0.3}, {9.8, 10},
	}
	labels, err := NewKMeans().Cluster(vectors, 2, 0)
	assert.NoError(t, err)
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[0], labels[4])
	assert.Equal(t, labels[1], labels[3])
	assert.Equal(t, labels[1], labels[5])
	assert.NotEqual(t, labels[0], labels[1])
}

func TestKMeansDeterministic(t *testing.T) {
	vectors := randomVectors(100, 20, 42)
	km := NewKMeans()
	a, err := km.Cluster(vectors, 5, 7)
	assert.NoError(t, err)
	b, err := km.Cluster(vectors, 5, 7)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 100)
	for _, label := range a {
		assert.GreaterOrEqual(t, label, 0)
		assert.Less(t, label, 5)
	}
}

func TestKMeansOneClusterPerVector(t *testing.T) {
	vectors := [][]float64{{1, 0}, {0, 1}, {5, 5}, {2, 3}}
	labels, err := NewKMeans().Cluster(vectors, 4, 0)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2, 3}, labels)
}

func TestKMeansIdenticalVectors(t *testing.T) {
	vectors := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	labels, err := (&KMeans{MaxIter: 10, NInit: 1}).Cluster(vectors, 3, 0)
	assert.NoError(t, err)
	assert.Len(t, labels, 3)
	for _, label := range labels {
		assert.GreaterOrEqual(t, label, 0)
		assert.Less(t, label, 3)
	}
}

func TestKMeansInvalid(t *testing.T) {
	var clusteringError *ClusteringError
	_, err := NewKMeans().Cluster(nil, 1, 0)
	assert.True(t, errors.As(err, &clusteringError))
	assert.Equal(t, 0, clusteringError.Users)
	_, err = NewKMeans().Cluster([][]float64{{1}, {2}}, 3, 0)
	assert.True(t, errors.As(err, &clusteringError))
	assert.Equal(t, 3, clusteringError.K)
	_, err = NewKMeans().Cluster([][]float64{{1}, {2}}, 0, 0)
	assert.True(t, errors.As(err, &clusteringError))
}

func TestAssign(t *testing.T) {
	m, err := matrix.Build([]dataset.Rating{
		{UserId: "U1", ItemId: "M1", Rating: 5},
		{UserId: "U1", ItemId: "M2", Rating: 1},
		{UserId: "U2", ItemId: "M1", Rating: 4},
		{UserId: "U2", ItemId: "M3", Rating: 5},
		{UserId: "U3", ItemId: "M2", Rating: 5},
		{UserId: "U3", ItemId: "M3", Rating: 4},
	})
	assert.NoError(t, err)
	a, err := Assign(m, 2, nil, 0)
	assert.NoError(t, err)
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 2, a.K)
	c1, ok := a.Cluster("U1")
	assert.True(t, ok)
	c2, _ := a.Cluster("U2")
	c3, _ := a.Cluster("U3")
	// {U1, U2} | {U3} has the lowest inertia
	assert.Equal(t, c1, c2)
	assert.NotEqual(t, c1, c3)
	assert.Equal(t, []string{"U1", "U2"}, a.Members(c1))
	assert.Equal(t, []string{"U3"}, a.Members(c3))
	sizes := a.Sizes()
	assert.Equal(t, 2, sizes[c1])
	assert.Equal(t, 1, sizes[c3])
	_, ok = a.Cluster("U4")
	assert.False(t, ok)

	// matrix is untouched
	v, _ := m.At("U1", "M1")
	assert.Equal(t, 5.0, v)

	// determinism
	b, err := Assign(m, 2, nil, 0)
	assert.NoError(t, err)
	assert.Equal(t, a.Labels(), b.Labels())
}

func TestAssignInvalid(t *testing.T) {
	m, err := matrix.Build([]dataset.Rating{{UserId: "1", ItemId: "1", Rating: 3}})
	assert.NoError(t, err)
	var clusteringError *ClusteringError
	_, err = Assign(m, 2, nil, 0)
	assert.True(t, errors.As(err, &clusteringError))
	_, err = Assign(nil, 1, nil, 0)
	assert.True(t, errors.As(err, &clusteringError))
	assert.Equal(t, "no users to cluster", err.Error())
}

type constantClusterer struct {
	label int
}

func (c constantClusterer) Cluster(vectors [][]float64, _ int, _ int64) ([]int, error) {
	labels := make([]int, len(vectors))
	for i := range labels {
		labels[i] = c.label
	}
	return labels, nil
}

func TestAssignCustomClusterer(t *testing.T) {
	m, err := matrix.Build([]dataset.Rating{
		{UserId: "1", ItemId: "1", Rating: 3},
		{UserId: "2", ItemId: "1", Rating: 4},
	})
	assert.NoError(t, err)
	a, err := Assign(m, 2, constantClusterer{label: 1}, 0)
	assert.NoError(t, err)
	assert.Equal(t, []int{0, 2}, a.Sizes())
	_, err = Assign(m, 2, constantClusterer{label: 2}, 0)
	assert.Error(t, err)
}

func TestNewAssignment(t *testing.T) {
	a, err := NewAssignment(2, map[string]int{"1": 0, "2": 1})
	assert.NoError(t, err)
	assert.Equal(t, 2, a.Len())
	_, err = NewAssignment(2, map[string]int{"1": 0, "2": 2})
	assert.True(t, errors.IsNotValid(err))
	_, err = NewAssignment(3, map[string]int{"1": 0, "2": 1})
	assert.Error(t, err)
}
