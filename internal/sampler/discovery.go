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

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/tracksampler/internal/logctx"
	"github.com/cardinalhq/tracksampler/internal/trackfile"
)

// FlightIDs maps an aircraft type to the flight identifiers discovered
// for it, in strict first-seen row order. Types with zero matches are
// absent.
type FlightIDs map[string][]string

// AllIDs returns the union of all identifier sets.
func (f FlightIDs) AllIDs() mapset.Set[string] {
	union := mapset.NewSet[string]()
	for _, ids := range f {
		union.Append(ids...)
	}
	return union
}

// idAccumulator collects distinct flight identifiers in first-seen order.
// The set gives O(1) membership; the slice pins the encounter order so
// quota truncation is deterministic.
type idAccumulator struct {
	seen mapset.Set[string]
	ids  []string
}

func newIDAccumulator() *idAccumulator {
	return &idAccumulator{
		seen: mapset.NewSet[string](),
	}
}

// add records id if it has not been seen yet.
func (a *idAccumulator) add(id string) {
	if a.seen.Add(id) {
		a.ids = append(a.ids, id)
	}
}

// truncate keeps the first n identifiers in encounter order.
func (a *idAccumulator) truncate(n int) {
	if len(a.ids) <= n {
		return
	}
	for _, id := range a.ids[n:] {
		a.seen.Remove(id)
	}
	a.ids = a.ids[:n]
}

// discoveryState is the working state of the first pass, threaded through
// the scan loop rather than held globally.
type discoveryState struct {
	needed mapset.Set[string]
	found  map[string]*idAccumulator
}

func newDiscoveryState(targets []string) *discoveryState {
	return &discoveryState{
		needed: mapset.NewSet(targets...),
		found:  make(map[string]*idAccumulator),
	}
}

// absorb merges one chunk into the state: rows whose type is still needed
// contribute their flight identifier, in row order.
func (s *discoveryState) absorb(rows []trackfile.Row) {
	for _, row := range rows {
		aircraftType, ok := row.FieldString(trackfile.ColumnType)
		if !ok || !s.needed.Contains(aircraftType) {
			continue
		}
		flightID, ok := row.FieldString(trackfile.ColumnFlightID)
		if !ok {
			continue
		}
		acc := s.found[aircraftType]
		if acc == nil {
			acc = newIDAccumulator()
			s.found[aircraftType] = acc
		}
		acc.add(flightID)
	}
}

// settle enforces the quota after a chunk: any type that reached it is
// truncated to exactly quota identifiers and removed from the needed set.
func (s *discoveryState) settle(ctx context.Context, quota int) {
	for _, aircraftType := range s.needed.ToSlice() {
		acc := s.found[aircraftType]
		if acc == nil || len(acc.ids) < quota {
			continue
		}
		acc.truncate(quota)
		s.needed.Remove(aircraftType)
		logctx.FromContext(ctx).Info("Found enough flights for type",
			slog.String("type", aircraftType),
			slog.Int("flights", quota))
	}
}

func (s *discoveryState) result() FlightIDs {
	ids := make(FlightIDs, len(s.found))
	for aircraftType, acc := range s.found {
		ids[aircraftType] = acc.ids
	}
	return ids
}

// DiscoverFlightIDs is the first pass: stream each file in chunks and
// accumulate distinct flight identifiers per target type until every
// type has quota identifiers or the file list is exhausted. Scanning
// stops entirely once all types are satisfied. Unreadable files are
// recorded in diags and skipped; only context cancellation aborts.
func DiscoverFlightIDs(ctx context.Context, opener trackfile.Opener, files []string, targets []string, quota, chunkSize int, diags *Diagnostics) (FlightIDs, error) {
	if diags == nil {
		diags = &Diagnostics{}
	}
	state := newDiscoveryState(targets)

	for _, path := range files {
		if state.needed.IsEmpty() {
			break
		}
		if err := scanFileForIDs(ctx, opener, path, state, quota, chunkSize); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			diags.Record(ctx, path, err)
		}
	}

	return state.result(), nil
}

// scanFileForIDs streams one file through the discovery state. A failure
// abandons the file; identifiers absorbed from earlier complete chunks
// are kept.
func scanFileForIDs(ctx context.Context, opener trackfile.Opener, path string, state *discoveryState, quota, chunkSize int) error {
	ll := logctx.FromContext(ctx)
	ll.Debug("Scanning file for flight ids", slog.String("file", path))

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

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := reader.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		state.absorb(rows)
		state.settle(ctx, quota)
		if state.needed.IsEmpty() {
			return nil
		}
	}
}
