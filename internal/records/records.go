// Package records is the record-store adapter: it loads whole worksheets into
// snapshots and adds, edits and deletes rows addressed by a key column.
//
// A remote worksheet is 1-indexed with row 1 holding the header. Data row i of
// a snapshot (0-indexed, header excluded) lives at remote row RowNumber(i).
// Nothing above this package deals in row numbers.
package records

import (
	"context"
	"fmt"
	"slices"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/tabular"
)

// HeaderOffset is the distance between a snapshot index and its remote row number:
// one for 1-based addressing plus one for the header row.
const HeaderOffset = 2

// RowNumber returns the remote row number of snapshot data row i.
func RowNumber(i int) int {
	return i + HeaderOffset
}

// ColumnLetter returns the A1 column name for the 1-based column n: 1 is "A",
// 26 is "Z", 27 is "AA".
func ColumnLetter(n int) string {
	if n < 1 {
		return ""
	}
	var out []byte
	for n > 0 {
		n--
		out = append(out, byte('A'+n%26))
		n /= 26
	}
	slices.Reverse(out)
	return string(out)
}

// Record is one row addressed by column name.
type Record map[string]string

// Snapshot is the in-memory copy of a worksheet at read time.
type Snapshot struct {
	Header  []string
	Records []Record
}

// Len returns the number of data rows.
func (s Snapshot) Len() int {
	return len(s.Records)
}

// HasColumn reports whether the header contains column.
func (s Snapshot) HasColumn(column string) bool {
	return slices.Contains(s.Header, column)
}

// Find returns the index of the first record whose column equals value, or -1.
func (s Snapshot) Find(column, value string) int {
	for i, r := range s.Records {
		if r[column] == value {
			return i
		}
	}
	return -1
}

// Column returns the values of column in row order.
func (s Snapshot) Column(column string) []string {
	out := make([]string, len(s.Records))
	for i, r := range s.Records {
		out[i] = r[column]
	}
	return out
}

// Values orders fields by the snapshot header; absent fields become "".
func (s Snapshot) Values(fields Record) []string {
	values := make([]string, len(s.Header))
	for i, col := range s.Header {
		values[i] = fields[col]
	}
	return values
}

// Load reads the whole worksheet. The first row is the header; a worksheet with
// only a header (or nothing at all) yields a snapshot with zero records.
func Load(ctx context.Context, table tabular.Table) (Snapshot, error) {
	rows, err := table.Rows(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s: %w", table.Name(), err)
	}
	return FromRows(rows), nil
}

// FromRows builds a snapshot from raw rows where rows[0] is the header.
// Short rows are padded with "" and cells beyond the header are dropped.
func FromRows(rows [][]string) Snapshot {
	if len(rows) == 0 {
		return Snapshot{}
	}

	header := slices.Clone(rows[0])
	// Trailing blank header cells come back from sheets that were once wider.
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}

	snap := Snapshot{Header: header, Records: make([]Record, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for j, col := range header {
			if j < len(row) {
				rec[col] = row[j]
			} else {
				rec[col] = ""
			}
		}
		snap.Records = append(snap.Records, rec)
	}
	return snap
}

func requireHeader(snap Snapshot, table tabular.Table) error {
	if len(snap.Header) == 0 {
		return fmt.Errorf("worksheet %q has no header row: %w", table.Name(), common.ErrMissingField)
	}
	return nil
}
