// Package gate wires expectation suites into catalog datasets as load and
// save hooks. Dataset entries opt in through an "expectations" annotation;
// the gate locates annotations, strips them from the configuration the
// catalog sees, and registers a validator per annotated dataset.
package gate

import (
	"bytes"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/grewanderer/datapact/catalog"
)

// annotationKey is the dataset entry key carrying validation settings. The
// catalog rejects it as an unknown parameter, so annotated configuration
// must pass through Sanitize before catalog.New.
const annotationKey = "expectations"

// Annotation is one dataset's validation settings.
type Annotation struct {
	// SuitePath locates the suite definition, relative to the suite root.
	SuitePath string
	// BreakOnFailure aborts the load or save when the suite fails. Failures
	// are only reported when it is off.
	BreakOnFailure bool
}

type rawAnnotation struct {
	Filepath       string `yaml:"filepath"`
	BreakOnFailure *bool  `yaml:"break_on_failure"`
}

// Annotations extracts the validation annotations from raw dataset
// configuration. Only tabular storage types can carry one; anything else is
// a ConfigError.
func Annotations(cfg catalog.Config) (map[string]Annotation, error) {
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]Annotation)
	for _, name := range names {
		entry := cfg[name]
		raw, ok := entry[annotationKey]
		if !ok {
			continue
		}

		typ, _ := entry["type"].(string)
		if !catalog.TabularType(typ) {
			return nil, configErrorf(name, "storage type %q does not support validation", typ)
		}

		ann, err := parseAnnotation(name, raw)
		if err != nil {
			return nil, err
		}
		out[name] = ann
	}
	return out, nil
}

func parseAnnotation(dataset string, raw any) (Annotation, error) {
	if raw == nil {
		return Annotation{}, configErrorf(dataset, "annotation must be a mapping with a filepath")
	}

	encoded, err := yaml.Marshal(raw)
	if err != nil {
		return Annotation{}, configErrorf(dataset, "encode annotation: %v", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(encoded))
	dec.KnownFields(true)
	var parsed rawAnnotation
	if err := dec.Decode(&parsed); err != nil {
		return Annotation{}, configErrorf(dataset, "decode annotation: %v", err)
	}

	if strings.TrimSpace(parsed.Filepath) == "" {
		return Annotation{}, configErrorf(dataset, "annotation filepath is required")
	}

	ann := Annotation{SuitePath: parsed.Filepath, BreakOnFailure: true}
	if parsed.BreakOnFailure != nil {
		ann.BreakOnFailure = *parsed.BreakOnFailure
	}
	return ann, nil
}
