package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type binaryOptions struct {
	Filepath string `yaml:"filepath"`
}

// binaryDataset moves raw bytes. It is not tabular and therefore cannot
// carry a validation annotation.
type binaryDataset struct {
	name string
	path string
}

func newBinaryDataset(name string, params map[string]any, deps Deps) (*binaryDataset, error) {
	var o binaryOptions
	if err := decodeParams(params, &o); err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.Filepath) == "" {
		return nil, errors.New("filepath is required")
	}
	return &binaryDataset{name: name, path: resolvePath(deps.BaseDir, o.Filepath)}, nil
}

func (d *binaryDataset) Load(ctx context.Context) (any, error) {
	raw, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	return raw, nil
}

func (d *binaryDataset) Save(ctx context.Context, value any) error {
	raw, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("payload must be []byte, got %T", value)
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(d.path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	return nil
}

func (d *binaryDataset) Describe() string {
	return fmt.Sprintf("binary file %s", d.path)
}
