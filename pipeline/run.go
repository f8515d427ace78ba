package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Store is the dataset access a run needs. *catalog.Catalog implements it.
type Store interface {
	Load(ctx context.Context, name string) (any, error)
	Save(ctx context.Context, name string, value any) error
	Exists(name string) bool
}

// Run executes the nodes in order, loading inputs from the store and saving
// outputs back. The first error halts the run; downstream nodes never
// execute. The summary reports what completed and which node failed.
func (p *Pipeline) Run(ctx context.Context, store Store, logger *slog.Logger) (RunSummary, error) {
	if store == nil {
		return RunSummary{}, fmt.Errorf("dataset store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	produced := make(map[string]bool)
	for _, node := range p.nodes {
		for _, input := range node.Inputs {
			if !produced[input] && !store.Exists(input) {
				return RunSummary{}, fmt.Errorf("node %q input %q is not in the catalog", node.Name, input)
			}
		}
		for _, output := range node.Outputs {
			if !store.Exists(output) {
				return RunSummary{}, fmt.Errorf("node %q output %q is not in the catalog", node.Name, output)
			}
			produced[output] = true
		}
	}

	var summary RunSummary
	for _, node := range p.nodes {
		if err := ctx.Err(); err != nil {
			summary.Failed = node.Name
			return summary, err
		}

		inputs := make(map[string]any, len(node.Inputs))
		for _, name := range node.Inputs {
			value, err := store.Load(ctx, name)
			if err != nil {
				summary.Failed = node.Name
				return summary, fmt.Errorf("node %q: %w", node.Name, err)
			}
			inputs[name] = value
		}

		logger.Debug("node starting", "node", node.Name)
		outputs, err := node.Fn(ctx, inputs)
		if err != nil {
			summary.Failed = node.Name
			return summary, fmt.Errorf("node %q: %w", node.Name, err)
		}

		for _, name := range node.Outputs {
			value, ok := outputs[name]
			if !ok {
				summary.Failed = node.Name
				return summary, fmt.Errorf("node %q did not produce dataset %q", node.Name, name)
			}
			if err := store.Save(ctx, name, value); err != nil {
				summary.Failed = node.Name
				return summary, fmt.Errorf("node %q: %w", node.Name, err)
			}
		}

		summary.Completed = append(summary.Completed, node.Name)
		logger.Info("node completed", "node", node.Name, "inputs", len(node.Inputs), "outputs", len(node.Outputs))
	}
	return summary, nil
}
