// Package report renders validation results as JSON artifacts and archives
// them under stable, run-scoped keys.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/grewanderer/datapact/expect"
)

// Schema identifies the report document format.
const Schema = "datapact.validation_report.v1"

// Validation events. A report records which side of the dataset I/O the
// suite ran on.
const (
	EventLoad = "load"
	EventSave = "save"
)

// Document is one archived validation outcome.
type Document struct {
	Schema     string        `json:"schema"`
	Dataset    string        `json:"dataset"`
	Event      string        `json:"event"`
	Suite      string        `json:"suite"`
	RunID      string        `json:"run_id"`
	RunTime    time.Time     `json:"run_time"`
	Success    bool          `json:"success"`
	Validation expect.Result `json:"validation"`
}

// New assembles a document from an evaluation result.
func New(dataset, event string, res expect.Result) Document {
	return Document{
		Schema:     Schema,
		Dataset:    dataset,
		Event:      event,
		Suite:      res.Meta.SuiteName,
		RunID:      res.Meta.RunID,
		RunTime:    res.Meta.RunTime,
		Success:    res.Success,
		Validation: res,
	}
}

func (d Document) Marshal() ([]byte, error) {
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return append(raw, '\n'), nil
}

// Key builds the archive key for a validation document:
// validations/<run_id>/<dataset>/<event>-<suite>.json.
func Key(runID, dataset, event, suite string) string {
	return fmt.Sprintf("validations/%s/%s/%s-%s.json",
		segment(runID), segment(dataset), segment(event), segment(suite))
}

// SuiteKey builds the archive key for the suite definition that produced a
// run's reports: suites/<dataset>/<file>.
func SuiteKey(dataset, file string) string {
	return fmt.Sprintf("suites/%s/%s", segment(dataset), segment(file))
}

// segment keeps archive keys portable across filesystems and object stores.
func segment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unnamed"
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
