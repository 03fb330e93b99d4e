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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultChunkSize, cfg.Sample.ChunkSize)
	assert.Equal(t, DefaultFlightsPerType, cfg.Sample.FlightsPerType)
	assert.Empty(t, cfg.Sample.Pattern)
	assert.Empty(t, cfg.Sample.TargetTypes)
	assert.Empty(t, cfg.Sample.OutputPath)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TRACKSAMPLER_SAMPLE_PATTERN", "data/flights_*.csv")
	t.Setenv("TRACKSAMPLER_SAMPLE_CHUNK_SIZE", "500")
	t.Setenv("TRACKSAMPLER_SAMPLE_FLIGHTS_PER_TYPE", "7")
	t.Setenv("TRACKSAMPLER_SAMPLE_OUTPUT_PATH", "out.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/flights_*.csv", cfg.Sample.Pattern)
	assert.Equal(t, 500, cfg.Sample.ChunkSize)
	assert.Equal(t, 7, cfg.Sample.FlightsPerType)
	assert.Equal(t, "out.csv", cfg.Sample.OutputPath)
}

func TestLoad_TargetTypesFromEnv(t *testing.T) {
	t.Setenv("TRACKSAMPLER_SAMPLE_TARGET_TYPES", "A320,B737")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"A320", "B737"}, cfg.Sample.TargetTypes)
}
