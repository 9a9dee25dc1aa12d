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
	"fmt"

	"github.com/gorse-io/moviecluster/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// MongoDB reads collections ratings, movies and users. Ids may be stored as
// strings or numbers.
type MongoDB struct {
	client *mongo.Client
	dbName string
}

func openMongoDB(ctx context.Context, path string) (*MongoDB, error) {
	database := new(MongoDB)
	var err error
	if database.client, err = mongo.Connect(ctx, options.Client().ApplyURI(path)); err != nil {
		return nil, errors.Trace(err)
	}
	// parse DSN and extract database name
	cs, err := connstring.ParseAndValidate(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	database.dbName = cs.Database
	return database, nil
}

// Init creates an index on user ids of ratings.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	_, err := db.client.Database(db.dbName).Collection(RatingsTable).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	return errors.Trace(err)
}

func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

func (db *MongoDB) find(ctx context.Context, collection string, handler func(bson.M) error) error {
	cursor, err := db.client.Database(db.dbName).Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc bson.M
		if err = cursor.Decode(&doc); err != nil {
			return errors.Trace(err)
		}
		if err = handler(doc); err != nil {
			return err
		}
	}
	return errors.Trace(cursor.Err())
}

func (db *MongoDB) LoadRatings(ctx context.Context) ([]dataset.Rating, error) {
	var ratings []dataset.Rating
	err := db.find(ctx, RatingsTable, func(doc bson.M) error {
		rating, err := toFloat(doc["rating"])
		if err != nil {
			return errors.Trace(err)
		}
		ratings = append(ratings, dataset.Rating{
			UserId: toString(doc["user_id"]),
			ItemId: toString(doc["movie_id"]),
			Rating: rating,
		})
		return nil
	})
	return ratings, err
}

func (db *MongoDB) LoadItems(ctx context.Context) ([]dataset.Item, error) {
	var items []dataset.Item
	err := db.find(ctx, MoviesTable, func(doc bson.M) error {
		items = append(items, dataset.Item{ItemId: toString(doc["movie_id"]), Title: toString(doc["title"])})
		return nil
	})
	return items, err
}

func (db *MongoDB) LoadUsers(ctx context.Context) ([]dataset.User, error) {
	var users []dataset.User
	err := db.find(ctx, UsersTable, func(doc bson.M) error {
		users = append(users, dataset.User{UserId: toString(doc["user_id"]), Comment: toString(doc["comment"])})
		return nil
	})
	return users, err
}

func (db *MongoDB) insertMany(ctx context.Context, collection string, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := db.client.Database(db.dbName).Collection(collection).InsertMany(ctx, docs)
	return errors.Trace(err)
}

func (db *MongoDB) BatchInsertRatings(ctx context.Context, ratings []dataset.Rating) error {
	return db.insertMany(ctx, RatingsTable, lo.Map(ratings, func(r dataset.Rating, _ int) any {
		return bson.M{"user_id": r.UserId, "movie_id": r.ItemId, "rating": r.Rating}
	}))
}

func (db *MongoDB) BatchInsertItems(ctx context.Context, items []dataset.Item) error {
	return db.insertMany(ctx, MoviesTable, lo.Map(items, func(item dataset.Item, _ int) any {
		return bson.M{"movie_id": item.ItemId, "title": item.Title}
	}))
}

func (db *MongoDB) BatchInsertUsers(ctx context.Context, users []dataset.User) error {
	return db.insertMany(ctx, UsersTable, lo.Map(users, func(user dataset.User, _ int) any {
		return bson.M{"user_id": user.UserId, "comment": user.Comment}
	}))
}

func toString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	}
	return 0, errors.NotValidf("rating %v", v)
}
