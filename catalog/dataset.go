// Package catalog builds datasets from declarative configuration and routes
// every load and save through per-dataset hook chains.
package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"gopkg.in/yaml.v3"

	"github.com/grewanderer/datapact/frame"
)

const (
	TypeCSV      = "csv"
	TypeJSON     = "json"
	TypePostgres = "postgres"
	TypeObject   = "object"
	TypeAPI      = "api"
	TypeBinary   = "binary"
	TypeMemory   = "memory"
)

// Dataset is a named data resource the catalog can load and save.
type Dataset interface {
	Load(ctx context.Context) (any, error)
	Save(ctx context.Context, value any) error
	Describe() string
}

// Deps carries the shared handles dataset constructors may need. Handles are
// only required by the dataset types that use them.
type Deps struct {
	// BaseDir anchors relative file paths; empty means the working directory.
	BaseDir    string
	DB         *sql.DB
	Objects    *minio.Client
	Bucket     string
	HTTPClient *http.Client
}

// TabularType reports whether datasets of the given storage type carry
// *frame.Frame payloads.
func TabularType(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case TypeCSV, TypeJSON, TypePostgres, TypeObject, TypeAPI, TypeMemory:
		return true
	default:
		return false
	}
}

func newDataset(typ, name string, params map[string]any, deps Deps) (Dataset, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case TypeCSV:
		return newCSVDataset(name, params, deps)
	case TypeJSON:
		return newJSONDataset(name, params, deps)
	case TypePostgres:
		return newPostgresDataset(name, params, deps)
	case TypeObject:
		return newObjectDataset(name, params, deps)
	case TypeAPI:
		return newAPIDataset(name, params, deps)
	case TypeBinary:
		return newBinaryDataset(name, params, deps)
	case TypeMemory:
		return newMemoryDataset(name, params)
	default:
		return nil, fmt.Errorf("unsupported dataset type %q", typ)
	}
}

// decodeParams maps loosely typed storage parameters onto a typed options
// struct, rejecting keys the struct does not declare.
func decodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

func asFrame(value any) (*frame.Frame, error) {
	f, ok := value.(*frame.Frame)
	if !ok || f == nil {
		return nil, fmt.Errorf("payload must be a *frame.Frame, got %T", value)
	}
	return f, nil
}

func resolvePath(base, path string) string {
	if base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
