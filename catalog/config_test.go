package catalog

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadConfig_MergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "catalog.yml", `
reviews:
  type: csv
  filepath: data/reviews.csv
`)
	writeFile(t, dir, "catalog_db.yml", `
companies:
  type: postgres
  table: companies
`)

	cfg, err := LoadConfig(os.DirFS(dir))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg) != 2 {
		t.Fatalf("len(cfg) = %d, want 2", len(cfg))
	}
	if cfg["reviews"]["filepath"] != "data/reviews.csv" {
		t.Fatalf("reviews.filepath = %v, want data/reviews.csv", cfg["reviews"]["filepath"])
	}
	if cfg["companies"]["table"] != "companies" {
		t.Fatalf("companies.table = %v, want companies", cfg["companies"]["table"])
	}
}

func TestLoadConfig_DuplicateDataset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "catalog_a.yml", "reviews:\n  type: csv\n  filepath: a.csv\n")
	writeFile(t, dir, "catalog_b.yml", "reviews:\n  type: csv\n  filepath: b.csv\n")

	_, err := LoadConfig(os.DirFS(dir))
	if err == nil {
		t.Fatal("LoadConfig() error = nil, want duplicate dataset error")
	}
	if !strings.Contains(err.Error(), `dataset "reviews" defined in both`) {
		t.Fatalf("error = %q, want duplicate dataset message", err)
	}
}

func TestLoadConfig_NoFilesMatched(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(os.DirFS(dir)); err == nil {
		t.Fatal("LoadConfig() error = nil, want no files matched error")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "catalog.yml", "reviews: [not a mapping\n")
	if _, err := LoadConfig(os.DirFS(dir)); err == nil {
		t.Fatal("LoadConfig() error = nil, want parse error")
	}
}

func TestConfigClone_Independent(t *testing.T) {
	cfg := Config{
		"reviews": {
			"type":     "csv",
			"filepath": "data/reviews.csv",
			"expectations": map[string]any{
				"filepath":         "suites/reviews.json",
				"break_on_failure": true,
			},
		},
	}

	clone := cfg.Clone()
	if !reflect.DeepEqual(clone, cfg) {
		t.Fatalf("clone = %v, want %v", clone, cfg)
	}

	delete(clone["reviews"], "expectations")
	if _, ok := cfg["reviews"]["expectations"]; !ok {
		t.Fatal("mutating the clone changed the original")
	}
}

func TestConfigClone_PreservesNil(t *testing.T) {
	cfg := Config{
		"empty": nil,
		"reviews": {
			"type":    "csv",
			"columns": []any(nil),
		},
	}

	clone := cfg.Clone()
	if clone["empty"] != nil {
		t.Fatalf("clone[empty] = %v, want nil", clone["empty"])
	}
	if !reflect.DeepEqual(clone, cfg) {
		t.Fatalf("clone = %#v, want %#v", clone, cfg)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
