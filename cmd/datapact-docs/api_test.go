package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/grewanderer/datapact/expect"
	"github.com/grewanderer/datapact/report"
)

func newTestMux(t *testing.T) (*http.ServeMux, report.Store) {
	t.Helper()
	store, err := report.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() err=%v", err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mux := http.NewServeMux()
	newDocsAPI(logger, store).register(mux)
	return mux, store
}

func putDoc(t *testing.T, store report.Store, runID, dataset, event, suite string, success bool) string {
	t.Helper()
	doc := report.Document{
		Schema:  report.Schema,
		Dataset: dataset,
		Event:   event,
		Suite:   suite,
		RunID:   runID,
		RunTime: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Success: success,
		Validation: expect.Result{
			Success: success,
			Statistics: expect.Statistics{
				EvaluatedExpectations:  2,
				SuccessfulExpectations: 2,
				SuccessPercent:         100,
			},
			Meta: expect.Meta{SuiteName: suite, RunID: runID},
		},
	}
	if !success {
		doc.Validation.Statistics.SuccessfulExpectations = 1
		doc.Validation.Statistics.UnsuccessfulExpectations = 1
		doc.Validation.Statistics.SuccessPercent = 50
	}

	body, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal() err=%v", err)
	}
	key := report.Key(runID, dataset, event, suite)
	if err := store.Put(context.Background(), key, body); err != nil {
		t.Fatalf("Put(%q) err=%v", key, err)
	}
	return key
}

func TestListRuns_GroupsByRun(t *testing.T) {
	mux, store := newTestMux(t)
	putDoc(t, store, "run-a", "raw", report.EventLoad, "raw.warning", true)
	putDoc(t, store, "run-a", "clean", report.EventSave, "clean.warning", true)
	putDoc(t, store, "run-b", "clean", report.EventLoad, "clean.warning", false)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	var resp struct {
		Runs []struct {
			RunID    string   `json:"run_id"`
			Reports  int      `json:"reports"`
			Datasets []string `json:"datasets"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Runs) != 2 {
		t.Fatalf("runs=%d, want 2", len(resp.Runs))
	}
	if resp.Runs[0].RunID != "run-a" || resp.Runs[0].Reports != 2 {
		t.Fatalf("runs[0]=%+v, want run-a with 2 reports", resp.Runs[0])
	}
	if len(resp.Runs[0].Datasets) != 2 || resp.Runs[0].Datasets[0] != "clean" {
		t.Fatalf("runs[0].Datasets=%v, want [clean raw]", resp.Runs[0].Datasets)
	}
	if resp.Runs[1].RunID != "run-b" || resp.Runs[1].Reports != 1 {
		t.Fatalf("runs[1]=%+v, want run-b with 1 report", resp.Runs[1])
	}
}

func TestListRuns_EmptyStore(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	var resp struct {
		Runs []any `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Runs) != 0 {
		t.Fatalf("runs=%d, want 0", len(resp.Runs))
	}
}

func TestGetRun_HydratesReports(t *testing.T) {
	mux, store := newTestMux(t)
	putDoc(t, store, "run-a", "raw", report.EventLoad, "raw.warning", true)
	putDoc(t, store, "run-a", "clean", report.EventSave, "clean.strict", false)
	putDoc(t, store, "run-b", "clean", report.EventLoad, "clean.warning", true)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-a", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	var resp struct {
		RunID   string `json:"run_id"`
		Reports []struct {
			Key       string `json:"key"`
			Dataset   string `json:"dataset"`
			Event     string `json:"event"`
			Suite     string `json:"suite"`
			Success   *bool  `json:"success"`
			Evaluated int    `json:"evaluated_expectations"`
			Unmet     int    `json:"unsuccessful_expectations"`
		} `json:"reports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID != "run-a" {
		t.Fatalf("run_id=%q, want run-a", resp.RunID)
	}
	if len(resp.Reports) != 2 {
		t.Fatalf("reports=%d, want 2", len(resp.Reports))
	}

	first := resp.Reports[0]
	if first.Dataset != "clean" || first.Event != "save" || first.Suite != "clean.strict" {
		t.Fatalf("reports[0]=%+v, want clean save clean.strict", first)
	}
	if first.Success == nil || *first.Success {
		t.Fatalf("reports[0].Success=%v, want false", first.Success)
	}
	if first.Evaluated != 2 || first.Unmet != 1 {
		t.Fatalf("reports[0] stats=%d/%d, want 2 evaluated 1 unmet", first.Evaluated, first.Unmet)
	}

	second := resp.Reports[1]
	if second.Dataset != "raw" || second.Success == nil || !*second.Success {
		t.Fatalf("reports[1]=%+v, want raw with success", second)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	mux, store := newTestMux(t)
	putDoc(t, store, "run-a", "raw", report.EventLoad, "raw.warning", true)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

func TestGetReport_ServesRawDocument(t *testing.T) {
	mux, store := newTestMux(t)
	key := putDoc(t, store, "run-a", "raw", report.EventLoad, "raw.warning", true)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+key, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	var doc report.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.RunID != "run-a" || doc.Schema != report.Schema {
		t.Fatalf("doc=%+v, want run-a document", doc)
	}
}

func TestGetReport_UnknownKeys(t *testing.T) {
	mux, store := newTestMux(t)
	putDoc(t, store, "run-a", "raw", report.EventLoad, "raw.warning", true)

	tests := []struct {
		name string
		path string
	}{
		{name: "missing report", path: "/api/v1/reports/validations/run-a/raw/save-raw.warning.json"},
		{name: "outside report tree", path: "/api/v1/reports/etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != http.StatusNotFound {
				t.Fatalf("status=%d, want 404", rec.Code)
			}
		})
	}
}

func TestParseReportKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
		want reportKey
	}{
		{
			name: "valid",
			key:  "validations/run-1/reviews/load-reviews.warning.json",
			ok:   true,
			want: reportKey{
				key:     "validations/run-1/reviews/load-reviews.warning.json",
				runID:   "run-1",
				dataset: "reviews",
				event:   "load",
				suite:   "reviews.warning",
			},
		},
		{name: "wrong prefix", key: "suites/reviews/reviews.json", ok: false},
		{name: "too shallow", key: "validations/run-1/load-x.json", ok: false},
		{name: "not json", key: "validations/run-1/reviews/load-x.txt", ok: false},
		{name: "no event separator", key: "validations/run-1/reviews/load.json", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseReportKey(tt.key)
			if ok != tt.ok {
				t.Fatalf("parseReportKey(%q) ok=%v, want %v", tt.key, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("parseReportKey(%q)=%+v, want %+v", tt.key, got, tt.want)
			}
		})
	}
}
