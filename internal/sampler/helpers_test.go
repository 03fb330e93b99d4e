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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const trackHeader = "flight_id,type,timestamp,latitude,longitude,altitude,speed,heading"

// trackRow renders one CSV data line with fixed telemetry values.
func trackRow(flightID, aircraftType string, seq int) string {
	return fmt.Sprintf("%s,%s,%d,51.5,-0.1,35000,450,270", flightID, aircraftType, 1700000000+seq)
}

// trackCSV builds a CSV file body: per type, `flights` flights with
// `rowsPerFlight` rows each, flight ids numbered from idStart.
func trackCSV(types []string, flights, rowsPerFlight, idStart int) string {
	lines := []string{trackHeader}
	seq := 0
	for _, aircraftType := range types {
		for f := 0; f < flights; f++ {
			id := fmt.Sprintf("%s%03d", aircraftType, idStart+f)
			for r := 0; r < rowsPerFlight; r++ {
				lines = append(lines, trackRow(id, aircraftType, seq))
				seq++
			}
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// countingOpener wraps the filesystem opener and counts opens per file.
type countingOpener struct {
	opens map[string]int
	fail  map[string]bool
}

func newCountingOpener() *countingOpener {
	return &countingOpener{
		opens: make(map[string]int),
		fail:  make(map[string]bool),
	}
}

func (o *countingOpener) open(path string) (io.ReadCloser, error) {
	name := filepath.Base(path)
	o.opens[name]++
	if o.fail[name] {
		return nil, fmt.Errorf("injected open failure")
	}
	return os.Open(path)
}

// errorTailReader yields its payload and then a non-EOF error, simulating
// a file that fails to parse mid-stream.
type errorTailReader struct {
	r   io.Reader
	err error
}

func (e *errorTailReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		return n, e.err
	}
	return n, err
}

// errorTailOpener serves in-memory payloads that fail after the last byte.
type errorTailOpener struct {
	payloads map[string]string
}

func (o *errorTailOpener) open(path string) (io.ReadCloser, error) {
	payload, ok := o.payloads[filepath.Base(path)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(&errorTailReader{
		r:   strings.NewReader(payload),
		err: fmt.Errorf("injected stream failure"),
	}), nil
}
