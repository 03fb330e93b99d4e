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

// Package sampler extracts a bounded sample of flight track records from
// a collection of CSV files: a fixed number of distinct flights per
// target aircraft type. Two sequential passes over the same file list
// keep memory bounded by the chunk size: the first discovers which flight
// identifiers qualify, the second copies every row belonging to them.
package sampler

import (
	"context"
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/oklog/ulid/v2"

	"github.com/cardinalhq/tracksampler/internal/logctx"
	"github.com/cardinalhq/tracksampler/internal/trackfile"
)

// Config is the invocation surface of a sampling run.
type Config struct {
	// Pattern is a shell-style glob selecting the input files. Matches
	// are processed in lexicographic path order.
	Pattern string `mapstructure:"pattern"`

	// TargetTypes lists the aircraft types to sample. Order defines the
	// summary report order only.
	TargetTypes []string `mapstructure:"target_types"`

	// FlightsPerType is the number of distinct flights to keep per type.
	FlightsPerType int `mapstructure:"flights_per_type"`

	// ChunkSize is the number of rows read per chunk. Larger chunks mean
	// fewer I/O calls and more peak memory.
	ChunkSize int `mapstructure:"chunk_size"`

	// OutputPath is where the consolidated result is written. Empty
	// disables persistence.
	OutputPath string `mapstructure:"output_path"`
}

// Validate reports the first invalid configuration field.
func (c *Config) Validate() error {
	if c.Pattern == "" {
		return fmt.Errorf("input pattern is required")
	}
	if len(c.TargetTypes) == 0 {
		return fmt.Errorf("at least one target type is required")
	}
	if c.FlightsPerType <= 0 {
		return fmt.Errorf("flights per type must be positive, got %d", c.FlightsPerType)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// TypeSummary reports per-type counts for one run. Observational only.
type TypeSummary struct {
	Type    string
	Flights int
	Rows    int
}

// Result is the outcome of one sampling run.
type Result struct {
	// Rows is the consolidated sample, sorted by (type, flight_id).
	Rows []trackfile.Row
	// Columns is the output column order.
	Columns []string
	// Flights is the discovered identifier map.
	Flights FlightIDs
	// Summary holds per-type counts in the caller's target-type order.
	Summary []TypeSummary
	// FileCount is the number of files the pattern matched.
	FileCount int
	// Skipped aggregates per-file read failures. Never fatal.
	Skipped error
}

// Empty reports whether the run produced no rows.
func (r *Result) Empty() bool {
	return len(r.Rows) == 0
}

// Diagnostics accumulates per-file skip errors across both passes.
type Diagnostics struct {
	errs *multierror.Error
}

// Record logs and retains one skipped file.
func (d *Diagnostics) Record(ctx context.Context, path string, err error) {
	logctx.FromContext(ctx).Warn("Skipping unreadable file",
		slog.String("file", path),
		slog.Any("error", err))
	d.errs = multierror.Append(d.errs, fmt.Errorf("%s: %w", path, err))
}

// Err returns the accumulated failures, or nil when every file was read.
func (d *Diagnostics) Err() error {
	return d.errs.ErrorOrNil()
}

// Count returns the number of skipped files.
func (d *Diagnostics) Count() int {
	if d.errs == nil {
		return 0
	}
	return d.errs.Len()
}

// Sampler orchestrates the two passes and the result persistence.
type Sampler struct {
	cfg    Config
	opener trackfile.Opener
}

// New creates a Sampler reading from the local filesystem.
func New(cfg Config) *Sampler {
	return &Sampler{
		cfg:    cfg,
		opener: trackfile.OpenFile,
	}
}

// NewWithOpener creates a Sampler with a custom file opener. Used by
// tests to count or fail opens.
func NewWithOpener(cfg Config, opener trackfile.Opener) *Sampler {
	return &Sampler{
		cfg:    cfg,
		opener: opener,
	}
}

// Run resolves the file list, runs discovery then collection over it,
// persists a non-empty result when an output path is configured, and
// returns the result with per-type summary counts. Empty selections are
// an empty result, not an error; only invalid configuration, context
// cancellation, or a failed write return one.
func (s *Sampler) Run(ctx context.Context) (*Result, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	ctx = logctx.WithAttrs(ctx, slog.String("run_id", ulid.Make().String()))
	ll := logctx.FromContext(ctx)

	files, err := trackfile.ListFiles(s.cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern %q: %w", s.cfg.Pattern, err)
	}
	if len(files) == 0 {
		ll.Info("No files found matching pattern", slog.String("pattern", s.cfg.Pattern))
		return &Result{}, nil
	}

	ll.Info("Starting sampling run",
		slog.Int("files", len(files)),
		slog.Any("target_types", s.cfg.TargetTypes),
		slog.Int("flights_per_type", s.cfg.FlightsPerType),
		slog.Int("chunk_size", s.cfg.ChunkSize))

	diags := &Diagnostics{}

	flights, err := DiscoverFlightIDs(ctx, s.opener, files, s.cfg.TargetTypes, s.cfg.FlightsPerType, s.cfg.ChunkSize, diags)
	if err != nil {
		return nil, err
	}
	for _, aircraftType := range s.cfg.TargetTypes {
		ll.Info("Flights found",
			slog.String("type", aircraftType),
			slog.Int("flights", len(flights[aircraftType])))
	}

	rows, columns, err := CollectRows(ctx, s.opener, files, flights, s.cfg.ChunkSize, diags)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Rows:      rows,
		Columns:   columns,
		Flights:   flights,
		Summary:   summarize(s.cfg.TargetTypes, flights, rows),
		FileCount: len(files),
		Skipped:   diags.Err(),
	}

	if !result.Empty() && s.cfg.OutputPath != "" {
		if err := trackfile.WriteCSV(s.cfg.OutputPath, result.Columns, result.Rows); err != nil {
			return nil, err
		}
		ll.Info("Result written", slog.String("path", s.cfg.OutputPath), slog.Int("rows", len(result.Rows)))
	}

	for _, ts := range result.Summary {
		ll.Info("Type summary",
			slog.String("type", ts.Type),
			slog.Int("flights", ts.Flights),
			slog.Int("rows", ts.Rows))
	}
	if n := diags.Count(); n > 0 {
		ll.Warn("Some files were skipped", slog.Int("files", n))
	}

	return result, nil
}

// summarize derives per-type row and distinct-flight counts, in the
// caller's target-type order.
func summarize(targets []string, flights FlightIDs, rows []trackfile.Row) []TypeSummary {
	rowCounts := make(map[string]int, len(targets))
	flightCounts := make(map[string]mapset.Set[string], len(targets))
	for _, row := range rows {
		aircraftType, ok := row.FieldString(trackfile.ColumnType)
		if !ok {
			continue
		}
		flightID, _ := row.FieldString(trackfile.ColumnFlightID)
		rowCounts[aircraftType]++
		ids := flightCounts[aircraftType]
		if ids == nil {
			ids = mapset.NewSet[string]()
			flightCounts[aircraftType] = ids
		}
		ids.Add(flightID)
	}

	out := make([]TypeSummary, 0, len(targets))
	for _, aircraftType := range targets {
		flights := 0
		if ids := flightCounts[aircraftType]; ids != nil {
			flights = ids.Cardinality()
		}
		out = append(out, TypeSummary{
			Type:    aircraftType,
			Flights: flights,
			Rows:    rowCounts[aircraftType],
		})
	}
	return out
}
