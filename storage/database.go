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
	"context"
	"strings"

	"github.com/gorse-io/moviecluster/dataset"
	"github.com/juju/errors"
)

const (
	CSVPrefix        = "csv://"
	SQLitePrefix     = "sqlite://"
	MySQLPrefix      = "mysql://"
	PostgresPrefix   = "postgres://"
	PostgreSQLPrefix = "postgresql://"
	MongoPrefix      = "mongodb://"
	MongoSrvPrefix   = "mongodb+srv://"
)

var dataStorePrefixes = []string{
	CSVPrefix,
	SQLitePrefix,
	MySQLPrefix,
	PostgresPrefix,
	PostgreSQLPrefix,
	MongoPrefix,
	MongoSrvPrefix,
}

// IsDataStore reports whether Open supports the scheme of a DSN.
func IsDataStore(path string) bool {
	for _, prefix := range dataStorePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

const (
	RatingsTable = "ratings"
	MoviesTable  = "movies"
	UsersTable   = "users"
)

// Database is a source of ratings, movies and users.
type Database interface {
	Init() error
	Close() error
	LoadRatings(ctx context.Context) ([]dataset.Rating, error)
	LoadItems(ctx context.Context) ([]dataset.Item, error)
	LoadUsers(ctx context.Context) ([]dataset.User, error)
	BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error
	BatchInsertItems(ctx context.Context, items []dataset.Item) error
	BatchInsertUsers(ctx context.Context, users []dataset.User) error
}

// Open connects to a database by DSN prefix.
func Open(ctx context.Context, path string) (Database, error) {
	switch {
	case strings.HasPrefix(path, CSVPrefix):
		return &CSV{dir: path[len(CSVPrefix):]}, nil
	case strings.HasPrefix(path, SQLitePrefix):
		return openSQLite(path[len(SQLitePrefix):])
	case strings.HasPrefix(path, MySQLPrefix):
		return openMySQL(path[len(MySQLPrefix):])
	case strings.HasPrefix(path, PostgresPrefix), strings.HasPrefix(path, PostgreSQLPrefix):
		return openPostgres(path)
	case strings.HasPrefix(path, MongoPrefix), strings.HasPrefix(path, MongoSrvPrefix):
		return openMongoDB(ctx, path)
	}
	return nil, errors.Errorf("unknown database: %s", path)
}

// LoadDataset loads and validates everything the recommender needs.
func LoadDataset(ctx context.Context, db Database) (*dataset.Dataset, error) {
	ratings, err := db.LoadRatings(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load ratings")
	}
	for i, r := range ratings {
		if err = r.Validate(); err != nil {
			return nil, errors.Annotatef(err, "rating #%d", i)
		}
	}
	items, err := db.LoadItems(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load movies")
	}
	users, err := db.LoadUsers(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "failed to load users")
	}
	return dataset.NewDataset(ratings, items, users), nil
}
