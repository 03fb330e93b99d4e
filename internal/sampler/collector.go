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

package sampler

import (
	"context"
	"io"
	"log/slog"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/tracksampler/internal/logctx"
	"github.com/cardinalhq/tracksampler/internal/trackfile"
)

// columnTracker accumulates the output column order: canonical telemetry
// columns first (in canonical order), then passthrough columns in
// first-seen order across files.
type columnTracker struct {
	seen  mapset.Set[string]
	extra []string
}

func newColumnTracker() *columnTracker {
	return &columnTracker{
		seen: mapset.NewSet[string](),
	}
}

func (t *columnTracker) observe(headers []string) {
	canonical := mapset.NewSet(trackfile.CanonicalColumns...)
	for _, h := range headers {
		if t.seen.Add(h) && !canonical.Contains(h) {
			t.extra = append(t.extra, h)
		}
	}
}

func (t *columnTracker) columns() []string {
	out := make([]string, 0, t.seen.Cardinality())
	for _, col := range trackfile.CanonicalColumns {
		if t.seen.Contains(col) {
			out = append(out, col)
		}
	}
	return append(out, t.extra...)
}

// CollectRows is the second pass: re-stream every file in chunks and keep
// each row whose flight identifier is in the union of the discovered sets.
// There is no early exit because matching rows may appear in any file.
// The returned rows are sorted stably by (type, flight_id) ascending;
// the returned columns are the output column order. Unreadable files are
// recorded in diags and skipped; only context cancellation aborts.
func CollectRows(ctx context.Context, opener trackfile.Opener, files []string, ids FlightIDs, chunkSize int, diags *Diagnostics) ([]trackfile.Row, []string, error) {
	if diags == nil {
		diags = &Diagnostics{}
	}

	targetIDs := ids.AllIDs()
	if targetIDs.IsEmpty() {
		logctx.FromContext(ctx).Info("No flight ids to collect")
		return nil, nil, nil
	}

	var collected []trackfile.Row
	tracker := newColumnTracker()

	for _, path := range files {
		if err := collectFromFile(ctx, opener, path, targetIDs, chunkSize, tracker, &collected); err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			diags.Record(ctx, path, err)
		}
	}

	if len(collected) == 0 {
		return nil, nil, nil
	}

	sortRows(collected)
	return collected, tracker.columns(), nil
}

// collectFromFile appends matching rows from one file, preserving the
// file's relative row order.
func collectFromFile(ctx context.Context, opener trackfile.Opener, path string, targetIDs mapset.Set[string], chunkSize int, tracker *columnTracker, collected *[]trackfile.Row) error {
	ll := logctx.FromContext(ctx)
	ll.Debug("Collecting rows from file", slog.String("file", path))

	rc, err := opener(path)
	if err != nil {
		return err
	}
	reader, err := trackfile.NewCSVReader(rc, chunkSize)
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.Close()
	}()

	tracker.observe(reader.Headers())

	matched := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := reader.Next(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		for _, row := range rows {
			flightID, ok := row.FieldString(trackfile.ColumnFlightID)
			if !ok || !targetIDs.Contains(flightID) {
				continue
			}
			*collected = append(*collected, row)
			matched++
		}
	}

	if matched > 0 {
		ll.Debug("Collected rows", slog.String("file", path), slog.Int("rows", matched))
	}
	return nil
}

// sortRows orders rows by (type, flight_id) ascending, stable with
// respect to the original relative order for ties. Rows missing a field
// sort with the empty string.
func sortRows(rows []trackfile.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, _ := rows[i].FieldString(trackfile.ColumnType)
		tj, _ := rows[j].FieldString(trackfile.ColumnType)
		if ti != tj {
			return ti < tj
		}
		fi, _ := rows[i].FieldString(trackfile.ColumnFlightID)
		fj, _ := rows[j].FieldString(trackfile.ColumnFlightID)
		return fi < fj
	})
}
