package format

import (
	"fmt"
	"sort"

	"datablocks/internal/schema"
)

// Frame is a columnar table: one value slice per column, all the same length.
type Frame struct {
	columns []string
	values  [][]any
}

// NewFrame builds a frame from column names and column-major values.
func NewFrame(columns []string, values [][]any) (*Frame, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("frame: %d columns but %d value slices", len(columns), len(values))
	}
	n := -1
	for i, col := range values {
		if n >= 0 && len(col) != n {
			return nil, fmt.Errorf("frame: column %q has %d values, want %d", columns[i], len(col), n)
		}
		n = len(col)
	}
	return &Frame{columns: append([]string(nil), columns...), values: values}, nil
}

// FrameFromRecords pivots records into columns. Columns are the sorted
// union of record keys; missing values are nil.
func FrameFromRecords(records schema.Records) *Frame {
	set := map[string]bool{}
	for _, r := range records {
		for k := range r {
			set[k] = true
		}
	}
	columns := make([]string, 0, len(set))
	for k := range set {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	values := make([][]any, len(columns))
	for i, c := range columns {
		col := make([]any, len(records))
		for j, r := range records {
			col[j] = r[c]
		}
		values[i] = col
	}
	return &Frame{columns: columns, values: values}
}

func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.values) == 0 {
		return 0
	}
	return len(f.values[0])
}

// Column returns a copy of one column's values.
func (f *Frame) Column(name string) ([]any, bool) {
	for i, c := range f.columns {
		if c == name {
			return append([]any(nil), f.values[i]...), true
		}
	}
	return nil, false
}

// Slice converts rows [from, to) back to records.
func (f *Frame) Slice(from, to int) schema.Records {
	if to > f.Len() {
		to = f.Len()
	}
	if from >= to {
		return nil
	}
	out := make(schema.Records, 0, to-from)
	for j := from; j < to; j++ {
		r := make(schema.Record, len(f.columns))
		for i, c := range f.columns {
			r[c] = f.values[i][j]
		}
		out = append(out, r)
	}
	return out
}

// Records converts the whole frame to records.
func (f *Frame) Records() schema.Records {
	return f.Slice(0, f.Len())
}

// Clone copies the column slices.
func (f *Frame) Clone() *Frame {
	values := make([][]any, len(f.values))
	for i, col := range f.values {
		values[i] = append([]any(nil), col...)
	}
	return &Frame{columns: f.Columns(), values: values}
}
