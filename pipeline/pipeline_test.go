package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNewDeterministicOrdering(t *testing.T) {
	nodes := []Node{
		node("load_b", nil, []string{"b"}),
		node("load_a", nil, []string{"a"}),
		node("join", []string{"a", "b"}, []string{"joined"}),
	}

	first, err := New(nodes...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := New(nodes...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first.Order(), second.Order()) {
		t.Fatalf("expected deterministic order, got %v vs %v", first.Order(), second.Order())
	}
	if want := []string{"load_a", "load_b", "join"}; !reflect.DeepEqual(first.Order(), want) {
		t.Fatalf("expected order %v, got %v", want, first.Order())
	}
}

func TestNewDerivesEdgesFromDatasets(t *testing.T) {
	p, err := New(
		node("report", []string{"clean"}, []string{"summary"}),
		node("clean", []string{"raw"}, []string{"clean"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"clean", "report"}; !reflect.DeepEqual(p.Order(), want) {
		t.Fatalf("expected order %v, got %v", want, p.Order())
	}
}

func TestNewCycle(t *testing.T) {
	_, err := New(
		node("a", []string{"y"}, []string{"x"}),
		node("b", []string{"x"}, []string{"y"}),
	)
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []Node
		wantErr string
	}{
		{
			name:    "empty name",
			nodes:   []Node{node("", nil, nil)},
			wantErr: "node name is required",
		},
		{
			name:    "duplicate name",
			nodes:   []Node{node("a", nil, nil), node("a", nil, nil)},
			wantErr: `node "a" defined twice`,
		},
		{
			name:    "missing fn",
			nodes:   []Node{{Name: "a"}},
			wantErr: "fn is required",
		},
		{
			name: "duplicate producer",
			nodes: []Node{
				node("a", nil, []string{"out"}),
				node("b", nil, []string{"out"}),
			},
			wantErr: `dataset "out" produced by both`,
		},
		{
			name:    "duplicate output on one node",
			nodes:   []Node{node("a", nil, []string{"out", "out"})},
			wantErr: `output "out" declared twice`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.nodes...)
			if err == nil {
				t.Fatal("New() error = nil, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunMovesData(t *testing.T) {
	store := newFakeStore("raw", "clean", "summary")
	store.values["raw"] = "payload"

	p, err := New(
		node2("summarize", []string{"clean"}, []string{"summary"}, func(in map[string]any) (map[string]any, error) {
			return map[string]any{"summary": in["clean"].(string) + "+summary"}, nil
		}),
		node2("clean", []string{"raw"}, []string{"clean"}, func(in map[string]any) (map[string]any, error) {
			return map[string]any{"clean": in["raw"].(string) + "+clean"}, nil
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	summary, err := p.Run(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := []string{"clean", "summarize"}; !reflect.DeepEqual(summary.Completed, want) {
		t.Fatalf("Completed = %v, want %v", summary.Completed, want)
	}
	if summary.Failed != "" {
		t.Fatalf("Failed = %q, want empty", summary.Failed)
	}
	if store.values["summary"] != "payload+clean+summary" {
		t.Fatalf("summary = %v, want payload+clean+summary", store.values["summary"])
	}
}

func TestRunHaltsOnNodeError(t *testing.T) {
	store := newFakeStore("raw", "clean", "summary")
	store.values["raw"] = "payload"
	boom := errors.New("transform failed")

	p, err := New(
		node2("clean", []string{"raw"}, []string{"clean"}, func(map[string]any) (map[string]any, error) {
			return nil, boom
		}),
		node2("summarize", []string{"clean"}, []string{"summary"}, func(in map[string]any) (map[string]any, error) {
			t.Error("downstream node ran after a failure")
			return map[string]any{"summary": "x"}, nil
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	summary, err := p.Run(context.Background(), store, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if summary.Failed != "clean" {
		t.Fatalf("Failed = %q, want clean", summary.Failed)
	}
	if len(summary.Completed) != 0 {
		t.Fatalf("Completed = %v, want empty", summary.Completed)
	}
}

func TestRunHaltsOnSaveError(t *testing.T) {
	store := newFakeStore("raw", "clean", "summary")
	store.values["raw"] = "payload"
	boom := errors.New("rejected by gate")
	store.saveErr = map[string]error{"clean": boom}

	p, err := New(
		node2("clean", []string{"raw"}, []string{"clean"}, func(in map[string]any) (map[string]any, error) {
			return map[string]any{"clean": "x"}, nil
		}),
		node2("summarize", []string{"clean"}, []string{"summary"}, func(in map[string]any) (map[string]any, error) {
			t.Error("downstream node ran after an aborted save")
			return map[string]any{"summary": "x"}, nil
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	summary, err := p.Run(context.Background(), store, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if summary.Failed != "clean" {
		t.Fatalf("Failed = %q, want clean", summary.Failed)
	}
}

func TestRunMissingOutput(t *testing.T) {
	store := newFakeStore("raw", "clean")
	store.values["raw"] = "payload"

	p, err := New(
		node2("clean", []string{"raw"}, []string{"clean"}, func(map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = p.Run(context.Background(), store, nil)
	if err == nil || !strings.Contains(err.Error(), `did not produce dataset "clean"`) {
		t.Fatalf("Run() error = %v, want missing output error", err)
	}
}

func TestRunRejectsUnknownDatasets(t *testing.T) {
	store := newFakeStore("raw")

	p, err := New(node("clean", []string{"raw"}, []string{"clean"}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := p.Run(context.Background(), store, nil); err == nil {
		t.Fatal("Run() error = nil, want unknown output dataset error")
	}

	p2, err := New(node("clean", []string{"ghost"}, nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := p2.Run(context.Background(), store, nil); err == nil {
		t.Fatal("Run() error = nil, want unknown input dataset error")
	}
}

func node(name string, inputs, outputs []string) Node {
	return node2(name, inputs, outputs, func(map[string]any) (map[string]any, error) {
		out := make(map[string]any, len(outputs))
		for _, o := range outputs {
			out[o] = "ok"
		}
		return out, nil
	})
}

func node2(name string, inputs, outputs []string, fn func(map[string]any) (map[string]any, error)) Node {
	return Node{
		Name:    name,
		Inputs:  inputs,
		Outputs: outputs,
		Fn: func(_ context.Context, in map[string]any) (map[string]any, error) {
			return fn(in)
		},
	}
}

type fakeStore struct {
	known   map[string]bool
	values  map[string]any
	saveErr map[string]error
}

func newFakeStore(names ...string) *fakeStore {
	known := make(map[string]bool, len(names))
	for _, name := range names {
		known[name] = true
	}
	return &fakeStore{known: known, values: make(map[string]any)}
}

func (s *fakeStore) Load(_ context.Context, name string) (any, error) {
	value, ok := s.values[name]
	if !ok {
		return nil, errors.New("no value for " + name)
	}
	return value, nil
}

func (s *fakeStore) Save(_ context.Context, name string, value any) error {
	if err := s.saveErr[name]; err != nil {
		return err
	}
	s.values[name] = value
	return nil
}

func (s *fakeStore) Exists(name string) bool {
	return s.known[name]
}
