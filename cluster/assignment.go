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
	"fmt"
	"maps"

	"github.com/gorse-io/moviecluster/dataset"
	"github.com/gorse-io/moviecluster/matrix"
	"github.com/juju/errors"
)

// ClusteringError reports a number of clusters that does not fit the data.
type ClusteringError struct {
	K     int
	Users int
}

func (e *ClusteringError) Error() string {
	if e.Users == 0 {
		return "no users to cluster"
	}
	return fmt.Sprintf("number of clusters must be in [1, %d], but got %d", e.Users, e.K)
}

func validate(nUsers, k int) error {
	if nUsers == 0 || k < 1 || k > nUsers {
		return &ClusteringError{K: k, Users: nUsers}
	}
	return nil
}

// Assignment maps each user of a rating matrix to a cluster index in [0, K).
// It is never modified after Assign returns.
type Assignment struct {
	K      int
	Seed   int64
	labels map[string]int
}

// Assign clusters the rows of a rating matrix into k groups. The matrix is
// not modified. A nil clusterer falls back to NewKMeans.
func Assign(m *matrix.RatingMatrix, k int, c Clusterer, seed int64) (*Assignment, error) {
	if m == nil {
		return nil, &ClusteringError{K: k}
	}
	users := m.Users()
	if err := validate(len(users), k); err != nil {
		return nil, err
	}
	if c == nil {
		c = NewKMeans()
	}
	labels, err := c.Cluster(m.Vectors(), k, seed)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(labels) != len(users) {
		return nil, errors.Errorf("clusterer returned %d labels for %d users", len(labels), len(users))
	}
	a := &Assignment{K: k, Seed: seed, labels: make(map[string]int, len(users))}
	for i, userId := range users {
		if labels[i] < 0 || labels[i] >= k {
			return nil, errors.Errorf("clusterer returned label %d out of [0, %d)", labels[i], k)
		}
		a.labels[userId] = labels[i]
	}
	return a, nil
}

// NewAssignment wraps a precomputed user to cluster mapping.
func NewAssignment(k int, labels map[string]int) (*Assignment, error) {
	if err := validate(len(labels), k); err != nil {
		return nil, err
	}
	for userId, label := range labels {
		if label < 0 || label >= k {
			return nil, errors.NotValidf("cluster %d of user %s", label, userId)
		}
	}
	return &Assignment{K: k, labels: maps.Clone(labels)}, nil
}

// Cluster returns the cluster of a user.
func (a *Assignment) Cluster(userId string) (int, bool) {
	c, ok := a.labels[userId]
	return c, ok
}

// Len returns the number of assigned users.
func (a *Assignment) Len() int {
	return len(a.labels)
}

// Labels returns a copy of the user to cluster mapping.
func (a *Assignment) Labels() map[string]int {
	return maps.Clone(a.labels)
}

// Members returns users in cluster c ordered by dataset.CompareID.
func (a *Assignment) Members(c int) []string {
	var members []string
	for userId, label := range a.labels {
		if label == c {
			members = append(members, userId)
		}
	}
	dataset.SortIDs(members)
	return members
}

// Sizes returns the number of users in each cluster. Some clusters may be empty.
func (a *Assignment) Sizes() []int {
	sizes := make([]int, a.K)
	for _, label := range a.labels {
		sizes[label]++
	}
	return sizes
}
