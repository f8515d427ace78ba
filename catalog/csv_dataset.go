package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grewanderer/datapact/frame"
)

type csvOptions struct {
	Filepath  string   `yaml:"filepath"`
	Delimiter string   `yaml:"delimiter"`
	NoHeader  bool     `yaml:"no_header"`
	Columns   []string `yaml:"columns"`
}

type csvDataset struct {
	name string
	path string
	opts frame.CSVOptions
}

func newCSVDataset(name string, params map[string]any, deps Deps) (*csvDataset, error) {
	var o csvOptions
	if err := decodeParams(params, &o); err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.Filepath) == "" {
		return nil, errors.New("filepath is required")
	}

	opts := frame.CSVOptions{NoHeader: o.NoHeader, Columns: o.Columns}
	if o.Delimiter != "" {
		runes := []rune(o.Delimiter)
		if len(runes) != 1 {
			return nil, errors.New("delimiter must be a single character")
		}
		opts.Delimiter = runes[0]
	}
	if o.NoHeader && len(o.Columns) == 0 {
		return nil, errors.New("columns are required when no_header is set")
	}

	return &csvDataset{
		name: name,
		path: resolvePath(deps.BaseDir, o.Filepath),
		opts: opts,
	}, nil
}

func (d *csvDataset) Load(ctx context.Context) (any, error) {
	file, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.path, err)
	}
	defer file.Close()

	f, err := frame.ReadCSV(file, d.opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	return f, nil
}

func (d *csvDataset) Save(ctx context.Context, value any) error {
	f, err := asFrame(value)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := frame.WriteCSV(&buf, f, d.opts); err != nil {
		return fmt.Errorf("render csv: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(d.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	return nil
}

func (d *csvDataset) Describe() string {
	return fmt.Sprintf("csv file %s", d.path)
}
