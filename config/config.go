// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardinalhq/tracksampler/internal/sampler"
)

// Config aggregates configuration for the application.
type Config struct {
	Sample sampler.Config `mapstructure:"sample"`
}

// Default values for fields a caller rarely tunes.
const (
	DefaultChunkSize      = 100_000
	DefaultFlightsPerType = 3
)

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "TRACKSAMPLER" and the dot
// character in keys is replaced by an underscore. For example,
// "sample.chunk_size" becomes "TRACKSAMPLER_SAMPLE_CHUNK_SIZE".
func Load() (*Config, error) {
	cfg := &Config{
		Sample: sampler.Config{
			FlightsPerType: DefaultFlightsPerType,
			ChunkSize:      DefaultChunkSize,
		},
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("TRACKSAMPLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	// Target types arrive as a comma-separated string from the environment.
	if t := v.GetString("sample.target_types"); t != "" {
		cfg.Sample.TargetTypes = strings.Split(t, ",")
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
