package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/grewanderer/datapact/catalog"
	"github.com/grewanderer/datapact/frame"
	"github.com/grewanderer/datapact/gate"
)

// A failing save-side suite must abort the node and keep every downstream
// node from running.
func TestRunAbortedByValidation(t *testing.T) {
	suites := t.TempDir()
	suite := `{
  "expectation_suite_name": "clean.strict",
  "expectations": [
    {"expectation_type": "expect_column_values_to_not_be_null", "kwargs": {"column": "status"}}
  ]
}`
	if err := os.WriteFile(filepath.Join(suites, "clean.json"), []byte(suite), 0o644); err != nil {
		t.Fatalf("write suite: %v", err)
	}

	c, err := gate.NewContext(gate.Config{
		Suites: os.DirFS(suites),
		RunID:  "run-int",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}

	cfg := catalog.Config{
		"raw": {
			"type": "memory",
			"data": []any{
				map[string]any{"id": 1, "status": "ok"},
				map[string]any{"id": 2},
			},
		},
		"clean": {
			"type": "memory",
			"expectations": map[string]any{
				"filepath": "clean.json",
			},
		},
		"summary": {"type": "memory"},
	}
	cat, err := c.Bind(context.Background(), cfg, catalog.Deps{})
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	p, err := New(
		Node{
			Name:    "clean",
			Inputs:  []string{"raw"},
			Outputs: []string{"clean"},
			Fn: func(_ context.Context, in map[string]any) (map[string]any, error) {
				return map[string]any{"clean": in["raw"]}, nil
			},
		},
		Node{
			Name:    "summarize",
			Inputs:  []string{"clean"},
			Outputs: []string{"summary"},
			Fn: func(_ context.Context, in map[string]any) (map[string]any, error) {
				t.Error("downstream node ran after validation aborted the save")
				return map[string]any{"summary": in["clean"]}, nil
			},
		},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	summary, err := p.Run(context.Background(), cat, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err == nil {
		t.Fatal("Run() error = nil, want failed validation")
	}

	var failed *gate.FailedValidationError
	if !errors.As(err, &failed) {
		t.Fatalf("Run() error = %T, want *gate.FailedValidationError through the node wrap", err)
	}
	if failed.Dataset != "clean" || failed.RunID != "run-int" {
		t.Fatalf("error = %+v, want dataset clean, run run-int", failed)
	}
	if summary.Failed != "clean" {
		t.Fatalf("Failed = %q, want clean", summary.Failed)
	}
	if len(summary.Completed) != 0 {
		t.Fatalf("Completed = %v, want empty", summary.Completed)
	}

	if _, err := cat.Load(context.Background(), "clean"); err == nil {
		t.Fatal("aborted save still stored the payload")
	}
}

// Report-only suites let the run finish while still evaluating every node
// boundary.
func TestRunContinuesWithReportOnlyValidation(t *testing.T) {
	suites := t.TempDir()
	suite := `{
  "expectation_suite_name": "clean.warning",
  "expectations": [
    {"expectation_type": "expect_column_values_to_not_be_null", "kwargs": {"column": "status"}}
  ]
}`
	if err := os.WriteFile(filepath.Join(suites, "clean.json"), []byte(suite), 0o644); err != nil {
		t.Fatalf("write suite: %v", err)
	}

	c, err := gate.NewContext(gate.Config{
		Suites: os.DirFS(suites),
		RunID:  "run-int-warn",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}

	cfg := catalog.Config{
		"raw": {
			"type": "memory",
			"data": []any{
				map[string]any{"id": 1, "status": "ok"},
				map[string]any{"id": 2},
			},
		},
		"clean": {
			"type": "memory",
			"expectations": map[string]any{
				"filepath":         "clean.json",
				"break_on_failure": false,
			},
		},
	}
	cat, err := c.Bind(context.Background(), cfg, catalog.Deps{})
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	p, err := New(Node{
		Name:    "clean",
		Inputs:  []string{"raw"},
		Outputs: []string{"clean"},
		Fn: func(_ context.Context, in map[string]any) (map[string]any, error) {
			return map[string]any{"clean": in["raw"]}, nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	summary, err := p.Run(context.Background(), cat, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Failed != "" || len(summary.Completed) != 1 {
		t.Fatalf("summary = %+v, want one completed node", summary)
	}

	loaded, err := cat.Load(context.Background(), "clean")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.(*frame.Frame).NumRows() != 2 {
		t.Fatal("report-only validation changed the payload")
	}
}
