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

package dataset

import (
	"math"
	"strings"

	"github.com/juju/errors"
)

// Rating is a single explicit rating given by a user to an item.
type Rating struct {
	UserId string
	ItemId string
	Rating float64
}

// Item is a catalog entry.
type Item struct {
	ItemId string
	Title  string
}

// User is a user record. Users are loaded alongside ratings but only users
// that appear in ratings take part in recommendation.
type User struct {
	UserId  string
	Comment string
}

// ValidateId validates user/item id. Id cannot be empty and contain [/].
func ValidateId(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.NotValidf("empty id")
	} else if strings.Contains(text, "/") {
		return errors.NotValidf("id %q containing `/`", text)
	}
	return nil
}

// Validate checks that a rating references valid ids and carries a finite value.
func (r Rating) Validate() error {
	if err := ValidateId(r.UserId); err != nil {
		return errors.Annotate(err, "user")
	}
	if err := ValidateId(r.ItemId); err != nil {
		return errors.Annotate(err, "item")
	}
	if math.IsNaN(r.Rating) || math.IsInf(r.Rating, 0) {
		return errors.NotValidf("rating %v", r.Rating)
	}
	return nil
}

// Catalog maps item ids to titles.
type Catalog map[string]string

// NewCatalog builds a catalog. The first title of a duplicated item id wins.
func NewCatalog(items []Item) Catalog {
	catalog := make(Catalog, len(items))
	for _, item := range items {
		if _, exist := catalog[item.ItemId]; !exist {
			catalog[item.ItemId] = item.Title
		}
	}
	return catalog
}

func (c Catalog) Title(itemId string) (string, bool) {
	title, ok := c[itemId]
	return title, ok
}

type Dataset struct {
	ratings []Rating
	items   []Item
	users   []User
	catalog Catalog
}

func NewDataset(ratings []Rating, items []Item, users []User) *Dataset {
	return &Dataset{
		ratings: ratings,
		items:   items,
		users:   users,
		catalog: NewCatalog(items),
	}
}

func (d *Dataset) GetRatings() []Rating {
	return d.ratings
}

func (d *Dataset) CountRatings() int {
	return len(d.ratings)
}

func (d *Dataset) GetItems() []Item {
	return d.items
}

func (d *Dataset) GetUsers() []User {
	return d.users
}

func (d *Dataset) GetCatalog() Catalog {
	return d.catalog
}
