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

package storage

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorse-io/moviecluster/dataset"
	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "123", Escape("123"))
	assert.Equal(t, "\"\"\"123\"\"\"", Escape("\"123\""))
	assert.Equal(t, "\"1,2,3\"", Escape("1,2,3"))
	assert.Equal(t, "\"\"\",\"\"\"", Escape("\",\""))
	assert.Equal(t, "\"1\r\n2\r\n3\"", Escape("1\r\n2\r\n3"))
}

func TestReadLines(t *testing.T) {
	text := "1,2,3\r\n\"1,2\",3,\"1\n2\"\n\"\"\"1\"\"\",2,3\n"
	var lines [][]string
	err := ReadLines(bufio.NewScanner(strings.NewReader(text)), ",", func(i int, fields []string) bool {
		assert.Equal(t, len(lines), i)
		lines = append(lines, fields)
		return true
	})
	assert.NoError(t, err)
	assert.Equal(t, [][]string{
		{"1", "2", "3"},
		{"1,2", "3", "1\n2"},
		{"\"1\"", "2", "3"},
	}, lines)
}

func TestCSVMovieLens(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "ratings.csv"),
		[]byte("userId,movieId,rating,timestamp\r\n1,1,4.0,964982703\r\n1,3,4.0,964981247\r\n\r\n2,3,2.5,964982224\r\n"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "movies.csv"),
		[]byte("movieId,title,genres\n1,Toy Story (1995),Adventure|Animation\n3,\"American President, The (1995)\",Comedy\n"), 0644))
	db := &CSV{dir: dir}
	ctx := context.Background()
	ratings, err := db.LoadRatings(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []dataset.Rating{
		{UserId: "1", ItemId: "1", Rating: 4},
		{UserId: "1", ItemId: "3", Rating: 4},
		{UserId: "2", ItemId: "3", Rating: 2.5},
	}, ratings)
	items, err := db.LoadItems(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []dataset.Item{
		{ItemId: "1", Title: "Toy Story (1995)"},
		{ItemId: "3", Title: "American President, The (1995)"},
	}, items)
	// users.csv is optional
	users, err := db.LoadUsers(ctx)
	assert.NoError(t, err)
	assert.Empty(t, users)
}

func TestCSVInvalid(t *testing.T) {
	dir := t.TempDir()
	db := &CSV{dir: dir}
	ctx := context.Background()
	// missing file
	_, err := db.LoadRatings(ctx)
	assert.Error(t, err)
	// missing column
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "ratings.csv"), []byte("user_id,rating\n1,4\n"), 0644))
	_, err = db.LoadRatings(ctx)
	assert.Error(t, err)
	// bad rating
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "ratings.csv"), []byte("user_id,movie_id,rating\n1,1,good\n"), 0644))
	_, err = db.LoadRatings(ctx)
	assert.Error(t, err)
	// short row
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "ratings.csv"), []byte("user_id,movie_id,rating\n1,1\n"), 0644))
	_, err = db.LoadRatings(ctx)
	assert.Error(t, err)
}
