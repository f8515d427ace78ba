package gate

import (
	"fmt"

	"github.com/grewanderer/datapact/expect"
)

// ConfigError marks invalid validation wiring: a malformed annotation, an
// annotation on a dataset that cannot carry one, or a suite that cannot be
// read or parsed. It is raised while binding, never during pipeline runs.
type ConfigError struct {
	Dataset string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("validation config for dataset %q: %v", e.Dataset, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(dataset, format string, args ...any) *ConfigError {
	return &ConfigError{Dataset: dataset, Err: fmt.Errorf(format, args...)}
}

// FailedValidationError aborts a load or save whose suite failed and was
// configured to break on failure.
type FailedValidationError struct {
	Dataset   string
	Suite     string
	Event     string
	RunID     string
	Failed    []expect.Expectation
	ReportKey string
}

func (e *FailedValidationError) Error() string {
	return fmt.Sprintf("suite %q failed on dataset %q during %s: %d expectations unmet (run %s)",
		e.Suite, e.Dataset, e.Event, len(e.Failed), e.RunID)
}
