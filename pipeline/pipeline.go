// Package pipeline runs dataset transformations in dependency order. Nodes
// declare the catalog datasets they read and write; edges are derived from
// those declarations, never written by hand.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Func transforms loaded inputs into outputs, both keyed by dataset name.
type Func func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// Node is one unit of work.
type Node struct {
	Name    string
	Inputs  []string
	Outputs []string
	Fn      Func
}

// Pipeline holds nodes in a deterministic execution order.
type Pipeline struct {
	nodes []Node
}

// RunSummary reports how far a run got.
type RunSummary struct {
	Completed []string
	Failed    string
}

// New validates the node set and orders it. Every output has exactly one
// producer, and the derived dependency graph must be acyclic. Ties are
// broken by node name, so the order is stable across runs.
func New(nodes ...Node) (*Pipeline, error) {
	byName := make(map[string]Node, len(nodes))
	producer := make(map[string]string)

	for _, node := range nodes {
		name := strings.TrimSpace(node.Name)
		if name == "" {
			return nil, fmt.Errorf("node name is required")
		}
		if _, ok := byName[name]; ok {
			return nil, fmt.Errorf("node %q defined twice", name)
		}
		if node.Fn == nil {
			return nil, fmt.Errorf("node %q: fn is required", name)
		}
		for _, input := range node.Inputs {
			if strings.TrimSpace(input) == "" {
				return nil, fmt.Errorf("node %q: input name is empty", name)
			}
		}
		seen := make(map[string]bool, len(node.Outputs))
		for _, output := range node.Outputs {
			if strings.TrimSpace(output) == "" {
				return nil, fmt.Errorf("node %q: output name is empty", name)
			}
			if seen[output] {
				return nil, fmt.Errorf("node %q: output %q declared twice", name, output)
			}
			seen[output] = true
			if prev, ok := producer[output]; ok {
				return nil, fmt.Errorf("dataset %q produced by both %q and %q", output, prev, name)
			}
			producer[output] = name
		}
		node.Name = name
		byName[name] = node
	}

	ordered, err := topoSortNodes(byName, producer)
	if err != nil {
		return nil, err
	}
	return &Pipeline{nodes: ordered}, nil
}

// Order returns node names in execution order.
func (p *Pipeline) Order() []string {
	names := make([]string, 0, len(p.nodes))
	for _, node := range p.nodes {
		names = append(names, node.Name)
	}
	return names
}

func topoSortNodes(byName map[string]Node, producer map[string]string) ([]Node, error) {
	inDegree := make(map[string]int, len(byName))
	adj := make(map[string][]string, len(byName))
	for name := range byName {
		inDegree[name] = 0
	}
	for name, node := range byName {
		for _, input := range node.Inputs {
			from, ok := producer[input]
			if !ok {
				continue
			}
			adj[from] = append(adj[from], name)
			inDegree[name]++
		}
	}

	ready := make([]string, 0, len(byName))
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	ordered := make([]Node, 0, len(byName))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])
		for _, neighbor := range adj[name] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				ready = append(ready, neighbor)
				sort.Strings(ready)
			}
		}
	}

	if len(ordered) != len(byName) {
		return nil, fmt.Errorf("dependency graph contains a cycle")
	}
	return ordered, nil
}
