package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Hook intercepts dataset traffic. OnLoad receives the loaded payload and
// returns the payload handed to the caller; OnSave receives the payload to
// be written and returns the payload handed to the dataset. A hook error
// aborts the operation.
type Hook interface {
	OnLoad(ctx context.Context, dataset string, value any) (any, error)
	OnSave(ctx context.Context, dataset string, value any) (any, error)
}

// Catalog holds live datasets and their hook chains. Build it from sanitized
// configuration: construction is strict and rejects unrecognized keys,
// including leftover validation annotations.
type Catalog struct {
	datasets map[string]Dataset
	hooks    map[string][]Hook
	logger   *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &Catalog{
		datasets: make(map[string]Dataset, len(cfg)),
		hooks:    make(map[string][]Hook),
		logger:   logger,
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("dataset name is empty")
		}
		entry := cfg[name]
		typ, _ := entry["type"].(string)
		if strings.TrimSpace(typ) == "" {
			return nil, fmt.Errorf("dataset %q: type is required", name)
		}

		params := make(map[string]any, len(entry))
		for k, v := range entry {
			if k == "type" {
				continue
			}
			params[k] = v
		}

		ds, err := newDataset(typ, name, params, deps)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", name, err)
		}
		c.datasets[name] = ds
	}
	return c, nil
}

// Register appends a hook to the named dataset's chain. The dataset must
// exist.
func (c *Catalog) Register(name string, h Hook) error {
	if c == nil || c.datasets == nil {
		return fmt.Errorf("catalog is not initialized")
	}
	if h == nil {
		return fmt.Errorf("hook is required")
	}
	if _, ok := c.datasets[name]; !ok {
		return fmt.Errorf("dataset %q is not in the catalog", name)
	}
	c.hooks[name] = append(c.hooks[name], h)
	return nil
}

// Load reads the dataset and pipes the payload through its hooks in
// registration order.
func (c *Catalog) Load(ctx context.Context, name string) (any, error) {
	ds, ok := c.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q is not in the catalog", name)
	}

	value, err := ds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	c.logger.Debug("dataset loaded", "dataset", name)

	for _, h := range c.hooks[name] {
		value, err = h.OnLoad(ctx, name, value)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

// Save pipes the payload through the dataset's hooks in registration order,
// then writes the result. A hook error prevents the write.
func (c *Catalog) Save(ctx context.Context, name string, value any) error {
	ds, ok := c.datasets[name]
	if !ok {
		return fmt.Errorf("dataset %q is not in the catalog", name)
	}

	var err error
	for _, h := range c.hooks[name] {
		value, err = h.OnSave(ctx, name, value)
		if err != nil {
			return err
		}
	}

	if err := ds.Save(ctx, value); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	c.logger.Debug("dataset saved", "dataset", name)
	return nil
}

func (c *Catalog) Exists(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.datasets[name]
	return ok
}

// List returns dataset names in sorted order.
func (c *Catalog) List() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.datasets))
	for name := range c.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) Describe(name string) (string, error) {
	ds, ok := c.datasets[name]
	if !ok {
		return "", fmt.Errorf("dataset %q is not in the catalog", name)
	}
	return ds.Describe(), nil
}
