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

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/moviecluster/storage"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for the recommender.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

type DatabaseConfig struct {
	DataStore string `mapstructure:"data_store" validate:"required,data_store"`
}

type RecommendConfig struct {
	NClusters        int   `mapstructure:"n_clusters" validate:"gte=1"`
	NRecommendations int   `mapstructure:"n_recommendations" validate:"gte=0"`
	Seed             int64 `mapstructure:"seed"`
	MaxIter          int   `mapstructure:"max_iter" validate:"gte=1"`
	NInit            int   `mapstructure:"n_init" validate:"gte=1"`
	Jobs             int   `mapstructure:"jobs" validate:"gte=1"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore: "csv://.",
		},
		Recommend: RecommendConfig{
			NClusters:        5,
			NRecommendations: 5,
			Seed:             0,
			MaxIter:          300,
			NInit:            10,
			Jobs:             1,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [database]
	v.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	// [recommend]
	v.SetDefault("recommend.n_clusters", defaultConfig.Recommend.NClusters)
	v.SetDefault("recommend.n_recommendations", defaultConfig.Recommend.NRecommendations)
	v.SetDefault("recommend.seed", defaultConfig.Recommend.Seed)
	v.SetDefault("recommend.max_iter", defaultConfig.Recommend.MaxIter)
	v.SetDefault("recommend.n_init", defaultConfig.Recommend.NInit)
	v.SetDefault("recommend.jobs", defaultConfig.Recommend.Jobs)
}

// LoadConfig loads configuration from a TOML file. An empty path loads
// defaults. Environment variables such as MOVIECLUSTER_RECOMMEND_N_CLUSTERS
// override both.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix("MOVIECLUSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "failed to read config %s", path)
		}
	}
	var conf Config
	// reject unknown keys
	if err := v.Unmarshal(&conf, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	}); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		return storage.IsDataStore(fl.Field().String())
	}); err != nil {
		return errors.Trace(err)
	}
	return validate.Struct(config)
}
