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

package matrix

import (
	"slices"

	"github.com/gorse-io/moviecluster/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyInput is returned when there are no ratings to build from.
var ErrEmptyInput = errors.New("empty input: no ratings")

// Missing is stored in cells of items a user has not rated.
const Missing = 0.0

// RatingMatrix is a dense user-by-item rating table. Rows and columns are
// ordered by dataset.CompareID. It is never modified after Build.
type RatingMatrix struct {
	users     []string
	items     []string
	userIndex map[string]int
	itemIndex map[string]int
	data      *mat.Dense
}

// Build creates a dense rating matrix with one row per distinct user and one
// column per distinct item. Duplicated (user, item) ratings are averaged.
func Build(ratings []dataset.Rating) (*RatingMatrix, error) {
	if len(ratings) == 0 {
		return nil, errors.Trace(ErrEmptyInput)
	}
	users := lo.Uniq(lo.Map(ratings, func(r dataset.Rating, _ int) string { return r.UserId }))
	items := lo.Uniq(lo.Map(ratings, func(r dataset.Rating, _ int) string { return r.ItemId }))
	dataset.SortIDs(users)
	dataset.SortIDs(items)
	m := &RatingMatrix{
		users:     users,
		items:     items,
		userIndex: indexOf(users),
		itemIndex: indexOf(items),
		data:      mat.NewDense(len(users), len(items), nil),
	}
	counts := make([]int32, len(users)*len(items))
	for _, r := range ratings {
		i, j := m.userIndex[r.UserId], m.itemIndex[r.ItemId]
		m.data.Set(i, j, m.data.At(i, j)+r.Rating)
		counts[i*len(items)+j]++
	}
	for i := range users {
		for j := range items {
			if n := counts[i*len(items)+j]; n > 1 {
				m.data.Set(i, j, m.data.At(i, j)/float64(n))
			}
		}
	}
	return m, nil
}

func indexOf(ids []string) map[string]int {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return index
}

// Dims returns the number of users and items.
func (m *RatingMatrix) Dims() (int, int) {
	return len(m.users), len(m.items)
}

// Users returns user ids in row order.
func (m *RatingMatrix) Users() []string {
	return slices.Clone(m.users)
}

// Items returns item ids in column order.
func (m *RatingMatrix) Items() []string {
	return slices.Clone(m.items)
}

func (m *RatingMatrix) UserIndex(userId string) (int, bool) {
	i, ok := m.userIndex[userId]
	return i, ok
}

func (m *RatingMatrix) ItemIndex(itemId string) (int, bool) {
	j, ok := m.itemIndex[itemId]
	return j, ok
}

// At returns the cell of a user and an item. The second result is false if
// either id is not in the matrix.
func (m *RatingMatrix) At(userId, itemId string) (float64, bool) {
	i, ok := m.userIndex[userId]
	if !ok {
		return 0, false
	}
	j, ok := m.itemIndex[itemId]
	if !ok {
		return 0, false
	}
	return m.data.At(i, j), true
}

// Row returns a copy of the rating vector of a user.
func (m *RatingMatrix) Row(userId string) ([]float64, bool) {
	i, ok := m.userIndex[userId]
	if !ok {
		return nil, false
	}
	return mat.Row(nil, i, m.data), true
}

// Vectors returns copies of all rating vectors in row order.
func (m *RatingMatrix) Vectors() [][]float64 {
	vectors := make([][]float64, len(m.users))
	for i := range vectors {
		vectors[i] = mat.Row(nil, i, m.data)
	}
	return vectors
}
