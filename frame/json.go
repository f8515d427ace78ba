package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ReadJSON parses an array of flat JSON objects ("records" orientation) into
// a Frame. Columns are the sorted union of keys across records; keys absent
// from a record become nil cells. RFC 3339 strings become timestamps.
func ReadJSON(r io.Reader) (*Frame, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode json records: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("json input has no records, columns cannot be inferred")
	}

	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	f, err := New(columns...)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		cells := make([]any, len(columns))
		for c, name := range columns {
			v := rec[name]
			if s, ok := v.(string); ok {
				if t, tok := inferTime(s); tok {
					v = t
				}
			}
			cells[c] = v
		}
		if err := f.AppendRow(cells...); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return f, nil
}

// WriteJSON renders a Frame as an array of JSON objects, one per row, with
// nil cells omitted.
func WriteJSON(w io.Writer, f *Frame) error {
	if f == nil {
		return errors.New("frame is required")
	}
	records := make([]map[string]any, 0, f.NumRows())
	for _, row := range f.rows {
		rec := make(map[string]any, len(f.columns))
		for i, cell := range row {
			if cell == nil {
				continue
			}
			rec[f.columns[i]] = cell
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json records: %w", err)
	}
	return nil
}
