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

// Package trackfile provides chunked access to flight track CSV files:
// a batch reader, a writer for consolidated results, and glob-based file
// selection. Callers construct readers directly and stream one bounded
// batch at a time.
package trackfile

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Canonical column names of the reference telemetry schema. Files may
// carry additional columns; they pass through unmodified.
const (
	ColumnFlightID  = "flight_id"
	ColumnType      = "type"
	ColumnTimestamp = "timestamp"
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
	ColumnAltitude  = "altitude"
	ColumnSpeed     = "speed"
	ColumnHeading   = "heading"
)

// CanonicalColumns is the preferred ordering of the reference schema
// columns in written output. Passthrough columns follow in first-seen
// order.
var CanonicalColumns = []string{
	ColumnFlightID,
	ColumnType,
	ColumnTimestamp,
	ColumnLatitude,
	ColumnLongitude,
	ColumnAltitude,
	ColumnSpeed,
	ColumnHeading,
}

// Row represents a single track record as a map of column names to values.
// Values are coerced to int64 or float64 when they parse as numbers, and
// remain strings otherwise.
type Row map[string]any

// FieldString returns the canonical string form of a field, so that a
// numeric-looking value compares equally however the reader coerced it.
// Returns "" and false when the field is absent.
func (r Row) FieldString(column string) (string, bool) {
	val, ok := r[column]
	if !ok {
		return "", false
	}
	switch v := val.(type) {
	case string:
		return v, true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Opener produces a readable stream for a path. The default opener reads
// from the local filesystem; tests substitute counting or failing openers.
type Opener func(path string) (io.ReadCloser, error)

// OpenFile is the default Opener.
func OpenFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// ListFiles resolves a shell-style glob pattern into a lexicographically
// sorted list of paths. Callers relying on chronological processing order
// must embed a sortable date token in their filenames.
func ListFiles(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
