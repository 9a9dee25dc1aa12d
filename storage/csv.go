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
	"strconv"
	"strings"

	"github.com/gorse-io/moviecluster/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

var columnAliases = map[string][]string{
	"user_id":  {"user_id", "userId"},
	"movie_id": {"movie_id", "movieId", "item_id"},
	"rating":   {"rating"},
	"title":    {"title"},
}

// CSV reads ratings.csv, movies.csv and users.csv from a directory. Every
// file starts with a header and columns are located by name.
type CSV struct {
	dir string
}

func (c *CSV) Init() error {
	return os.MkdirAll(c.dir, os.ModePerm)
}

func (c *CSV) Close() error {
	return nil
}

func (c *CSV) path(table string) string {
	return filepath.Join(c.dir, table+".csv")
}

func (c *CSV) LoadRatings(_ context.Context) ([]dataset.Rating, error) {
	var ratings []dataset.Rating
	err := c.readTable(RatingsTable, []string{"user_id", "movie_id", "rating"}, func(lineNumber int, fields []string) error {
		rating, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return errors.Annotatef(err, "line %d", lineNumber)
		}
		ratings = append(ratings, dataset.Rating{
			UserId: strings.TrimSpace(fields[0]),
			ItemId: strings.TrimSpace(fields[1]),
			Rating: rating,
		})
		return nil
	})
	return ratings, errors.Trace(err)
}

func (c *CSV) LoadItems(_ context.Context) ([]dataset.Item, error) {
	var items []dataset.Item
	err := c.readTable(MoviesTable, []string{"movie_id", "title"}, func(_ int, fields []string) error {
		items = append(items, dataset.Item{ItemId: strings.TrimSpace(fields[0]), Title: fields[1]})
		return nil
	})
	return items, errors.Trace(err)
}

// LoadUsers returns no users if users.csv does not exist.
func (c *CSV) LoadUsers(_ context.Context) ([]dataset.User, error) {
	if _, err := os.Stat(c.path(UsersTable)); os.IsNotExist(err) {
		return nil, nil
	}
	var users []dataset.User
	err := c.readTable(UsersTable, []string{"user_id"}, func(_ int, fields []string) error {
		users = append(users, dataset.User{UserId: strings.TrimSpace(fields[0])})
		return nil
	})
	return users, errors.Trace(err)
}

func (c *CSV) BatchInsertRatings(_ context.Context, ratings []dataset.Rating) error {
	return c.appendTable(RatingsTable, []string{"user_id", "movie_id", "rating"}, lo.Map(ratings, func(r dataset.Rating, _ int) []string {
		return []string{r.UserId, r.ItemId, strconv.FormatFloat(r.Rating, 'f', -1, 64)}
	}))
}

func (c *CSV) BatchInsertItems(_ context.Context, items []dataset.Item) error {
	return c.appendTable(MoviesTable, []string{"movie_id", "title"}, lo.Map(items, func(item dataset.Item, _ int) []string {
		return []string{item.ItemId, item.Title}
	}))
}

func (c *CSV) BatchInsertUsers(_ context.Context, users []dataset.User) error {
	return c.appendTable(UsersTable, []string{"user_id"}, lo.Map(users, func(user dataset.User, _ int) []string {
		return []string{user.UserId}
	}))
}

// readTable passes the requested columns of each row to handler in the order of columns.
func (c *CSV) readTable(table string, columns []string, handler func(int, []string) error) error {
	file, err := os.Open(c.path(table))
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	var (
		indices    []int
		handlerErr error
	)
	err = ReadLines(bufio.NewScanner(file), ",", func(lineNumber int, fields []string) bool {
		if lineNumber == 0 {
			if indices, handlerErr = locateColumns(fields, columns); handlerErr != nil {
				handlerErr = errors.Annotatef(handlerErr, "%s.csv", table)
				return false
			}
			return true
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			// skip blank line
			return true
		}
		selected := make([]string, len(indices))
		for i, index := range indices {
			if index >= len(fields) {
				handlerErr = errors.NotValidf("%s.csv line %d with %d fields", table, lineNumber, len(fields))
				return false
			}
			selected[i] = fields[index]
		}
		if handlerErr = handler(lineNumber, selected); handlerErr != nil {
			return false
		}
		return true
	})
	if err != nil {
		return errors.Trace(err)
	}
	return handlerErr
}

func locateColumns(header, columns []string) ([]int, error) {
	indices := make([]int, len(columns))
	for i, column := range columns {
		indices[i] = -1
		for j, name := range header {
			if lo.Contains(columnAliases[column], strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
				indices[i] = j
				break
			}
		}
		if indices[i] < 0 {
			return nil, errors.NotFoundf("column %s", column)
		}
	}
	return indices, nil
}

func (c *CSV) appendTable(table string, header []string, rows [][]string) error {
	path := c.path(table)
	_, statErr := os.Stat(path)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	if os.IsNotExist(statErr) {
		if _, err = w.WriteString(strings.Join(header, ",") + "\n"); err != nil {
			return errors.Trace(err)
		}
	}
	for _, row := range rows {
		if _, err = w.WriteString(strings.Join(lo.Map(row, func(field string, _ int) string {
			return Escape(field)
		}), ",") + "\n"); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(w.Flush())
}

// Escape text for csv.
func Escape(text string) string {
	// check if need escape
	if !strings.Contains(text, ",") &&
		!strings.Contains(text, "\"") &&
		!strings.Contains(text, "\n") &&
		!strings.Contains(text, "\r") {
		return text
	}
	// start to encode
	builder := strings.Builder{}
	builder.WriteRune('"')
	for _, c := range text {
		if c == '"' {
			builder.WriteString("\"\"")
		} else {
			builder.WriteRune(c)
		}
	}
	builder.WriteRune('"')
	return builder.String()
}

// ReadLines parse fields of each line for csv file.
func ReadLines(sc *bufio.Scanner, sep string, handler func(int, []string) bool) error {
	lineCount := 0               // line number of current position
	fields := make([]string, 0)  // fields for current line
	builder := strings.Builder{} // string builder for current field
	quoted := false              // whether current position in quote
	for sc.Scan() {
		line := []rune(strings.TrimSuffix(sc.Text(), "\r"))
		if quoted {
			builder.WriteString("\n")
		}
		for i := 0; i < len(line); i++ {
			if string(line[i]) == sep && !quoted {
				// end of field
				fields = append(fields, builder.String())
				builder.Reset()
			} else if line[i] == '"' {
				if quoted {
					if i+1 >= len(line) || line[i+1] != '"' {
						// end of quoted
						quoted = false
					} else {
						i++
						builder.WriteRune('"')
					}
				} else {
					// start of quoted
					quoted = true
				}
			} else {
				builder.WriteRune(line[i])
			}
		}
		// end of line
		if !quoted {
			fields = append(fields, builder.String())
			builder.Reset()
			if !handler(lineCount, fields) {
				return nil
			}
			fields = []string{}
			lineCount++
		}
	}
	return sc.Err()
}
