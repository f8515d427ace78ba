package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"
)

// CSVOptions control CSV reading and writing. The zero value means
// comma-delimited with a header row.
type CSVOptions struct {
	Delimiter rune
	// NoHeader indicates the input carries no header row; Columns must then
	// name the fields in order. On write, NoHeader suppresses the header.
	NoHeader bool
	Columns  []string
}

func (o CSVOptions) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

func validDelimiter(d rune) bool {
	switch d {
	case '"', '\r', '\n', utf8.RuneError:
		return false
	}
	return utf8.ValidRune(d)
}

// ReadCSV parses CSV input into a Frame. Cell values are inferred: empty
// fields become nil, then int, float, bool (true/false spellings only) and
// RFC 3339 timestamps are tried before falling back to string.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	d := opts.delimiter()
	if !validDelimiter(d) {
		return nil, fmt.Errorf("invalid csv delimiter %q", d)
	}

	cr := csv.NewReader(r)
	cr.Comma = d

	columns := opts.Columns
	if !opts.NoHeader {
		header, err := cr.Read()
		if err == io.EOF {
			return nil, errors.New("csv input is empty")
		}
		if err != nil {
			return nil, fmt.Errorf("read csv header: %w", err)
		}
		columns = header
	}
	if len(columns) == 0 {
		return nil, errors.New("csv columns are required when no header row is present")
	}

	f, err := New(columns...)
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	cr.FieldsPerRecord = len(columns)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		cells := make([]any, len(record))
		for i, field := range record {
			cells[i] = inferCell(field)
		}
		if err := f.AppendRow(cells...); err != nil {
			return nil, err
		}
	}
}

// WriteCSV renders a Frame as CSV. Nil cells become empty fields and
// timestamps are written in RFC 3339 form.
func WriteCSV(w io.Writer, f *Frame, opts CSVOptions) error {
	if f == nil {
		return errors.New("frame is required")
	}
	d := opts.delimiter()
	if !validDelimiter(d) {
		return fmt.Errorf("invalid csv delimiter %q", d)
	}

	cw := csv.NewWriter(w)
	cw.Comma = d

	if !opts.NoHeader {
		if err := cw.Write(f.Columns()); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	record := make([]string, f.NumCols())
	for _, row := range f.rows {
		for i, cell := range row {
			record[i] = renderCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func inferCell(s string) any {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if fv, err := strconv.ParseFloat(s, 64); err == nil {
		return fv
	}
	switch s {
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}
	if t, ok := inferTime(s); ok {
		return t
	}
	return s
}

func inferTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func renderCell(cell any) string {
	switch x := cell.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", x)
	}
}
