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
	"strings"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/tracksampler/internal/trackfile"
)

func TestCollectRows_EmptyIDMap(t *testing.T) {
	rows, columns, err := CollectRows(context.Background(), trackfile.OpenFile, []string{"does-not-matter.csv"}, FlightIDs{}, 100, nil)
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.Nil(t, columns)
}

func TestCollectRows_Containment(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "f1.csv", trackCSV([]string{"A", "B"}, 3, 2, 1))
	writeTestFile(t, dir, "f2.csv", trackCSV([]string{"A", "B"}, 3, 2, 10))
	files := []string{dir + "/f1.csv", dir + "/f2.csv"}

	ids := FlightIDs{
		"A": {"A001", "A011"},
		"B": {"B002"},
	}

	rows, _, err := CollectRows(context.Background(), trackfile.OpenFile, files, ids, 100, nil)
	require.NoError(t, err)

	want := ids.AllIDs()
	got := mapset.NewSet[string]()
	for _, row := range rows {
		flightID, ok := row.FieldString(trackfile.ColumnFlightID)
		require.True(t, ok)
		assert.True(t, want.Contains(flightID), "collected row for undiscovered flight %s", flightID)
		got.Add(flightID)
	}
	assert.True(t, got.Equal(want), "every discovered flight has rows: got %v", got)
	assert.Len(t, rows, 6, "two rows per discovered flight")
}

func TestCollectRows_SortedAndStable(t *testing.T) {
	dir := t.TempDir()
	// interleave types and flights out of order; seq column tracks the
	// original relative order of equal keys
	content := strings.Join([]string{
		trackHeader + ",seq",
		trackRow("B001", "B", 0) + ",0",
		trackRow("A002", "A", 1) + ",1",
		trackRow("A001", "A", 2) + ",2",
		trackRow("A002", "A", 3) + ",3",
		trackRow("B001", "B", 4) + ",4",
		trackRow("A001", "A", 5) + ",5",
	}, "\n") + "\n"
	writeTestFile(t, dir, "f1.csv", content)

	ids := FlightIDs{"A": {"A002", "A001"}, "B": {"B001"}}
	rows, columns, err := CollectRows(context.Background(), trackfile.OpenFile, []string{dir + "/f1.csv"}, ids, 2, nil)
	require.NoError(t, err)
	require.Len(t, rows, 6)

	var keys [][2]string
	var seqs []string
	for _, row := range rows {
		aircraftType, _ := row.FieldString(trackfile.ColumnType)
		flightID, _ := row.FieldString(trackfile.ColumnFlightID)
		seq, _ := row.FieldString("seq")
		keys = append(keys, [2]string{aircraftType, flightID})
		seqs = append(seqs, seq)
	}

	assert.Equal(t, [][2]string{
		{"A", "A001"}, {"A", "A001"},
		{"A", "A002"}, {"A", "A002"},
		{"B", "B001"}, {"B", "B001"},
	}, keys)
	// ties keep original relative order
	assert.Equal(t, []string{"2", "5", "1", "3", "0", "4"}, seqs)

	// passthrough column comes after the canonical ones
	assert.Equal(t, append(append([]string{}, trackfile.CanonicalColumns...), "seq"), columns)
}

func TestCollectRows_NoEarlyExit(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "f1.csv", trackCSV([]string{"A"}, 2, 2, 1))
	writeTestFile(t, dir, "f2.csv", trackCSV([]string{"A"}, 2, 2, 10))
	files := []string{dir + "/f1.csv", dir + "/f2.csv"}

	opener := newCountingOpener()
	// everything we want is in file 1, file 2 must still be scanned
	_, _, err := CollectRows(context.Background(), opener.open, files, FlightIDs{"A": {"A001"}}, 100, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, opener.opens["f1.csv"])
	assert.Equal(t, 1, opener.opens["f2.csv"])
}

func TestCollectRows_SkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "f1.csv", trackCSV([]string{"A"}, 1, 2, 1))
	writeTestFile(t, dir, "f2.csv", trackCSV([]string{"A"}, 1, 2, 1))
	files := []string{dir + "/f1.csv", dir + "/f2.csv"}

	opener := newCountingOpener()
	opener.fail["f2.csv"] = true

	diags := &Diagnostics{}
	rows, _, err := CollectRows(context.Background(), opener.open, files, FlightIDs{"A": {"A001"}}, 100, diags)
	require.NoError(t, err)

	assert.Len(t, rows, 2, "rows from the readable file survive")
	assert.Equal(t, 1, diags.Count())
}

func TestCollectRows_DuplicateSourceRowsPropagate(t *testing.T) {
	dir := t.TempDir()
	line := trackRow("A001", "A", 0)
	writeTestFile(t, dir, "f1.csv", trackHeader+"\n"+line+"\n"+line+"\n")

	rows, _, err := CollectRows(context.Background(), trackfile.OpenFile, []string{dir + "/f1.csv"}, FlightIDs{"A": {"A001"}}, 100, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, rows[0], rows[1])
}

func TestCollectRows_NoMatches(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "f1.csv", trackCSV([]string{"A"}, 1, 2, 1))

	rows, columns, err := CollectRows(context.Background(), trackfile.OpenFile, []string{dir + "/f1.csv"}, FlightIDs{"A": {"A999"}}, 100, nil)
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.Nil(t, columns)
}
