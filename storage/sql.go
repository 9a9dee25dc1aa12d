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
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/gorse-io/moviecluster/dataset"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const batchSize = 1000

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLRating allows duplicated (user, movie) pairs, so it has a surrogate key.
type SQLRating struct {
	ID      uint    `gorm:"primaryKey"`
	UserId  string  `gorm:"column:user_id;type:varchar(256);index"`
	MovieId string  `gorm:"column:movie_id;type:varchar(256)"`
	Rating  float64 `gorm:"column:rating"`
}

func (SQLRating) TableName() string {
	return RatingsTable
}

type SQLMovie struct {
	MovieId string `gorm:"column:movie_id;type:varchar(256);primaryKey"`
	Title   string `gorm:"column:title"`
}

func (SQLMovie) TableName() string {
	return MoviesTable
}

type SQLUser struct {
	UserId  string `gorm:"column:user_id;type:varchar(256);primaryKey"`
	Comment string `gorm:"column:comment"`
}

func (SQLUser) TableName() string {
	return UsersTable
}

// SQLDatabase stores ratings, movies and users in MySQL, Postgres or SQLite through GORM.
type SQLDatabase struct {
	driver SQLDriver
	client *sql.DB
	gormDB *gorm.DB
}

func newGORMConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
}

func openMySQL(name string) (*SQLDatabase, error) {
	name, err := appendMySQLParams(name, map[string]string{
		"sql_mode": "'ONLY_FULL_GROUP_BY,STRICT_TRANS_TABLES,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'",
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	database := &SQLDatabase{driver: MySQL}
	if database.client, err = sql.Open("mysql", name); err != nil {
		return nil, errors.Trace(err)
	}
	if database.gormDB, err = gorm.Open(gormmysql.New(gormmysql.Config{Conn: database.client}), newGORMConfig()); err != nil {
		return nil, errors.Trace(err)
	}
	return database, nil
}

// appendMySQLParams sets parameters that are not present in a MySQL DSN.
func appendMySQLParams(dsn string, params map[string]string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Trace(err)
	}
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	for key, value := range params {
		if _, exist := cfg.Params[key]; !exist {
			cfg.Params[key] = value
		}
	}
	return cfg.FormatDSN(), nil
}

func openPostgres(path string) (*SQLDatabase, error) {
	var err error
	database := &SQLDatabase{driver: Postgres}
	if database.client, err = sql.Open("postgres", path); err != nil {
		return nil, errors.Trace(err)
	}
	if database.gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: database.client}), newGORMConfig()); err != nil {
		return nil, errors.Trace(err)
	}
	return database, nil
}

func openSQLite(name string) (*SQLDatabase, error) {
	var err error
	database := &SQLDatabase{driver: SQLite}
	if database.client, err = sql.Open("sqlite", name); err != nil {
		return nil, errors.Trace(err)
	}
	// an in-memory database lives as long as its only connection
	database.client.SetMaxOpenConns(1)
	if database.gormDB, err = gorm.Open(sqlite.Dialector{Conn: database.client}, newGORMConfig()); err != nil {
		return nil, errors.Trace(err)
	}
	return database, nil
}

func (d *SQLDatabase) Init() error {
	return errors.Trace(d.gormDB.AutoMigrate(&SQLRating{}, &SQLMovie{}, &SQLUser{}))
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

func (d *SQLDatabase) LoadRatings(ctx context.Context) ([]dataset.Rating, error) {
	var rows []SQLRating
	if err := d.gormDB.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLRating, _ int) dataset.Rating {
		return dataset.Rating{UserId: row.UserId, ItemId: row.MovieId, Rating: row.Rating}
	}), nil
}

func (d *SQLDatabase) LoadItems(ctx context.Context) ([]dataset.Item, error) {
	var rows []SQLMovie
	if err := d.gormDB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLMovie, _ int) dataset.Item {
		return dataset.Item{ItemId: row.MovieId, Title: row.Title}
	}), nil
}

func (d *SQLDatabase) LoadUsers(ctx context.Context) ([]dataset.User, error) {
	var rows []SQLUser
	if err := d.gormDB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLUser, _ int) dataset.User {
		return dataset.User{UserId: row.UserId, Comment: row.Comment}
	}), nil
}

func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	rows := lo.Map(ratings, func(r dataset.Rating, _ int) SQLRating {
		return SQLRating{UserId: r.UserId, MovieId: r.ItemId, Rating: r.Rating}
	})
	return errors.Trace(d.gormDB.WithContext(ctx).CreateInBatches(&rows, batchSize).Error)
}

func (d *SQLDatabase) BatchInsertItems(ctx context.Context, items []dataset.Item) error {
	if len(items) == 0 {
		return nil
	}
	rows := lo.Map(items, func(item dataset.Item, _ int) SQLMovie {
		return SQLMovie{MovieId: item.ItemId, Title: item.Title}
	})
	return errors.Trace(d.gormDB.WithContext(ctx).CreateInBatches(&rows, batchSize).Error)
}

func (d *SQLDatabase) BatchInsertUsers(ctx context.Context, users []dataset.User) error {
	if len(users) == 0 {
		return nil
	}
	rows := lo.Map(users, func(user dataset.User, _ int) SQLUser {
		return SQLUser{UserId: user.UserId, Comment: user.Comment}
	})
	return errors.Trace(d.gormDB.WithContext(ctx).CreateInBatches(&rows, batchSize).Error)
}
