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

type jsonOptions struct {
	Filepath string `yaml:"filepath"`
}

type jsonDataset struct {
	name string
	path string
}

func newJSONDataset(name string, params map[string]any, deps Deps) (*jsonDataset, error) {
	var o jsonOptions
	if err := decodeParams(params, &o); err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.Filepath) == "" {
		return nil, errors.New("filepath is required")
	}
	return &jsonDataset{name: name, path: resolvePath(deps.BaseDir, o.Filepath)}, nil
}

func (d *jsonDataset) Load(ctx context.Context) (any, error) {
	file, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.path, err)
	}
	defer file.Close()

	f, err := frame.ReadJSON(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	return f, nil
}

func (d *jsonDataset) Save(ctx context.Context, value any) error {
	f, err := asFrame(value)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := frame.WriteJSON(&buf, f); err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(d.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	return nil
}

func (d *jsonDataset) Describe() string {
	return fmt.Sprintf("json file %s", d.path)
}
