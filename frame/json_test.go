package frame

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestReadJSONRecords(t *testing.T) {
	in := `[
		{"id": 1, "name": "alpha", "score": 0.5},
		{"id": 2, "seen": "2026-03-01T10:00:00Z"}
	]`

	f, err := ReadJSON(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadJSON() err=%v", err)
	}

	cols := f.Columns()
	want := []string{"id", "name", "score", "seen"}
	if len(cols) != len(want) {
		t.Fatalf("Columns()=%v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("Columns()=%v, want %v", cols, want)
		}
	}

	v, _ := f.Value(0, "id")
	if v != int64(1) {
		t.Fatalf("id=%v (%T), want int64 1", v, v)
	}
	v, _ = f.Value(0, "score")
	if v != float64(0.5) {
		t.Fatalf("score=%v (%T), want float64 0.5", v, v)
	}
	v, _ = f.Value(1, "name")
	if v != nil {
		t.Fatalf("missing key=%v, want nil", v)
	}
	v, _ = f.Value(1, "seen")
	if ts, ok := v.(time.Time); !ok || !ts.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("seen=%v (%T), want timestamp", v, v)
	}
}

func TestReadJSONRejectsEmptyAndNested(t *testing.T) {
	if _, err := ReadJSON(strings.NewReader(`[]`)); err == nil {
		t.Fatalf("ReadJSON() expected error for empty array")
	}
	if _, err := ReadJSON(strings.NewReader(`[{"a": {"nested": 1}}]`)); err == nil {
		t.Fatalf("ReadJSON() expected error for nested object cell")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	f, _ := New("id", "name")
	_ = f.AppendRow(1, "alpha")
	_ = f.AppendRow(2, nil)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, f); err != nil {
		t.Fatalf("WriteJSON() err=%v", err)
	}

	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() err=%v", err)
	}
	if !f.Equal(back) {
		t.Fatalf("round-trip frame differs: %v vs %v", f.Rows(), back.Rows())
	}
}
