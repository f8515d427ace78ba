// Package frame holds tabular data in memory as ordered, named columns of
// scalar cells. It is the payload type carried between dataset storage and
// validation.
package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Frame is an ordered table. Cells are normalized on ingest to one of:
// nil, string, bool, int64, float64, time.Time.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

func New(columns ...string) (*Frame, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("at least one column is required")
	}
	index := make(map[string]int, len(columns))
	names := make([]string, 0, len(columns))
	for i, c := range columns {
		name := strings.TrimSpace(c)
		if name == "" {
			return nil, fmt.Errorf("column %d: name is empty", i)
		}
		if _, ok := index[name]; ok {
			return nil, fmt.Errorf("column %d: duplicate name %q", i, name)
		}
		index[name] = len(names)
		names = append(names, name)
	}
	return &Frame{columns: names, index: index}, nil
}

// AppendRow adds one row. The value count must match the column count.
func (f *Frame) AppendRow(values ...any) error {
	if f == nil {
		return fmt.Errorf("frame is not initialized")
	}
	if len(values) != len(f.columns) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(values), len(f.columns))
	}
	row := make([]any, len(values))
	for i, v := range values {
		cell, err := normalize(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", f.columns[i], err)
		}
		row[i] = cell
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

func (f *Frame) NumRows() int {
	if f == nil {
		return 0
	}
	return len(f.rows)
}

func (f *Frame) NumCols() int {
	if f == nil {
		return 0
	}
	return len(f.columns)
}

func (f *Frame) HasColumn(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.index[name]
	return ok
}

func (f *Frame) ColumnIndex(name string) (int, bool) {
	if f == nil {
		return 0, false
	}
	i, ok := f.index[name]
	return i, ok
}

// Column returns a copy of the named column's cells in row order.
func (f *Frame) Column(name string) ([]any, error) {
	i, ok := f.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("column %q does not exist", name)
	}
	out := make([]any, len(f.rows))
	for r, row := range f.rows {
		out[r] = row[i]
	}
	return out, nil
}

func (f *Frame) Value(row int, column string) (any, error) {
	if f == nil || row < 0 || row >= len(f.rows) {
		return nil, fmt.Errorf("row %d out of range", row)
	}
	i, ok := f.index[column]
	if !ok {
		return nil, fmt.Errorf("column %q does not exist", column)
	}
	return f.rows[row][i], nil
}

// Rows returns a deep copy of all rows.
func (f *Frame) Rows() [][]any {
	if f == nil {
		return nil
	}
	out := make([][]any, len(f.rows))
	for r, row := range f.rows {
		cp := make([]any, len(row))
		copy(cp, row)
		out[r] = cp
	}
	return out
}

// Equal reports structural equality: same columns in the same order and
// cell-wise equal rows.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if len(f.columns) != len(other.columns) || len(f.rows) != len(other.rows) {
		return false
	}
	for i, c := range f.columns {
		if other.columns[i] != c {
			return false
		}
	}
	for r, row := range f.rows {
		for i, cell := range row {
			if !cellsEqual(cell, other.rows[r][i]) {
				return false
			}
		}
	}
	return true
}

func cellsEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case bool:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("integer value %d overflows", x)
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case time.Time:
		return x, nil
	case []byte:
		return string(x), nil
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if i, err := x.Int64(); err == nil {
				return i, nil
			}
		}
		fv, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", x.String())
		}
		return fv, nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", v)
	}
}
