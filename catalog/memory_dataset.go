package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/grewanderer/datapact/frame"
)

type memoryOptions struct {
	Data any `yaml:"data"`
}

// memoryDataset holds a value in process. Useful for pipeline intermediates
// and fixtures: a data parameter shaped as a list of flat records becomes a
// frame.
type memoryDataset struct {
	name  string
	value any
	set   bool
}

func newMemoryDataset(name string, params map[string]any) (*memoryDataset, error) {
	var o memoryOptions
	if err := decodeParams(params, &o); err != nil {
		return nil, err
	}

	d := &memoryDataset{name: name}
	if o.Data == nil {
		return d, nil
	}

	if records, ok := o.Data.([]any); ok {
		raw, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("encode data records: %w", err)
		}
		f, err := frame.ReadJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("data records: %w", err)
		}
		d.value = f
		d.set = true
		return d, nil
	}

	d.value = o.Data
	d.set = true
	return d, nil
}

func (d *memoryDataset) Load(ctx context.Context) (any, error) {
	if !d.set {
		return nil, fmt.Errorf("dataset %q holds no data yet", d.name)
	}
	return d.value, nil
}

func (d *memoryDataset) Save(ctx context.Context, value any) error {
	d.value = value
	d.set = true
	return nil
}

func (d *memoryDataset) Describe() string {
	return "in-memory value"
}
