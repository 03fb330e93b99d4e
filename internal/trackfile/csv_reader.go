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

package trackfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const defaultChunkSize = 1000

// CSVReader streams rows from a CSV file in bounded-size chunks.
type CSVReader struct {
	reader    *csv.Reader
	headers   []string
	closer    io.Closer
	closed    bool
	chunkSize int
	rowIndex  int
	totalRows int64
}

// NewCSVReader creates a CSVReader for the given io.ReadCloser. The reader
// takes ownership of the closer and will close it when Close is called.
// The header row is consumed immediately; a stream without headers is an
// error.
func NewCSVReader(reader io.ReadCloser, chunkSize int) (*CSVReader, error) {
	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields

	headers, err := csvReader.Read()
	if err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) == 0 {
		_ = reader.Close()
		return nil, fmt.Errorf("CSV file has no headers")
	}

	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &CSVReader{
		reader:    csvReader,
		headers:   headers,
		closer:    reader,
		chunkSize: chunkSize,
	}, nil
}

// Headers returns the column names from the header row, in file order.
func (r *CSVReader) Headers() []string {
	return r.headers
}

// Next returns the next chunk of up to chunkSize rows. Rows whose field
// count does not match the header row are skipped. Returns io.EOF when
// the stream is drained.
func (r *CSVReader) Next(ctx context.Context) ([]Row, error) {
	if r.closed {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, r.chunkSize)

	for len(rows) < r.chunkSize {
		record, err := r.reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("CSV read error at line %d: %w", r.rowIndex+2, err)
		}

		r.rowIndex++

		// Skip rows with wrong number of columns
		if len(record) != len(r.headers) {
			continue
		}

		row := make(Row, len(r.headers))
		for i, value := range record {
			row[r.headers[i]] = parseValue(value)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		r.closed = true
		return nil, io.EOF
	}

	r.totalRows += int64(len(rows))
	return rows, nil
}

// TotalRowsReturned returns the total number of rows returned via Next.
func (r *CSVReader) TotalRowsReturned() int64 {
	return r.totalRows
}

// Close closes the reader and the underlying io.ReadCloser.
func (r *CSVReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.closer != nil {
		err = r.closer.Close()
		r.closer = nil
	}
	r.reader = nil
	return err
}

// parseValue attempts to parse a string value as a number if possible.
func parseValue(value string) any {
	trimmed := strings.TrimSpace(value)

	// Empty strings remain as empty strings
	if trimmed == "" {
		return ""
	}

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}

	return value
}
