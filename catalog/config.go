package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config is raw dataset configuration: dataset name to its declaration
// record. Records hold a storage "type" key, storage parameters, and
// possibly a validation annotation that must be stripped before New.
type Config map[string]map[string]any

// LoadConfig reads every YAML file matching the glob patterns and merges
// their top-level entries. A dataset name defined in two files is an error.
func LoadConfig(fsys fs.FS, patterns ...string) (Config, error) {
	if fsys == nil {
		return nil, errors.New("filesystem is required")
	}
	if len(patterns) == 0 {
		patterns = []string{"catalog*.yml", "catalog*.yaml"}
	}

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no catalog files matched %v", patterns)
	}

	out := Config{}
	source := make(map[string]string)
	for _, file := range files {
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		var doc map[string]map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		for name, entry := range doc {
			if prev, ok := source[name]; ok {
				return nil, fmt.Errorf("dataset %q defined in both %s and %s", name, prev, file)
			}
			source[name] = file
			out[name] = entry
		}
	}
	return out, nil
}

// Clone returns a deep copy, so transforms on the copy cannot touch the
// original configuration. Nil maps and slices stay nil to keep copies
// structurally identical to their source.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for name, entry := range c {
		if entry == nil {
			out[name] = nil
			continue
		}
		out[name] = cloneValue(entry).(map[string]any)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
