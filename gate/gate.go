package gate

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/grewanderer/datapact/catalog"
	"github.com/grewanderer/datapact/expect"
	"github.com/grewanderer/datapact/report"
)

// Config assembles a validation context. Suites is the only required field.
type Config struct {
	// Suites is the filesystem annotation suite paths resolve against.
	Suites fs.FS
	// Reports archives validation outcomes. Nil disables archiving.
	Reports report.Store
	// RunID tags every result produced under this context. Empty means a
	// generated id.
	RunID  string
	Logger *slog.Logger
	// Now stamps results; nil means time.Now.
	Now func() time.Time
}

// Context carries everything validators need: the suite root, the report
// archive, the run identifier, and clocks. Build one per pipeline run.
type Context struct {
	suites  fs.FS
	reports report.Store
	runID   string
	logger  *slog.Logger
	now     func() time.Time
}

func NewContext(cfg Config) (*Context, error) {
	if cfg.Suites == nil {
		return nil, errors.New("suite filesystem is required")
	}

	c := &Context{
		suites:  cfg.Suites,
		reports: cfg.Reports,
		runID:   cfg.RunID,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// RunID returns the identifier every result produced under this context is
// tagged with.
func (c *Context) RunID() string {
	return c.runID
}

// Hook builds a validator for one dataset. The suite is read and parsed
// eagerly, so broken wiring surfaces before any data moves.
func (c *Context) Hook(ctx context.Context, dataset string, ann Annotation) (*Validator, error) {
	raw, err := fs.ReadFile(c.suites, ann.SuitePath)
	if err != nil {
		return nil, &ConfigError{Dataset: dataset, Err: err}
	}
	suite, err := expect.ParseSuite(raw)
	if err != nil {
		return nil, &ConfigError{Dataset: dataset, Err: err}
	}

	if c.reports != nil {
		key := report.SuiteKey(dataset, path.Base(ann.SuitePath))
		if err := c.reports.Put(ctx, key, raw); err != nil {
			c.logger.Error("suite archive failed", "dataset", dataset, "key", key, "error", err)
		}
	}

	return &Validator{
		dataset:        dataset,
		suite:          suite,
		breakOnFailure: ann.BreakOnFailure,
		reports:        c.reports,
		runID:          c.runID,
		logger:         c.logger,
		now:            c.now,
	}, nil
}

// Attach registers a validator on every annotated dataset. Every annotated
// name must exist in the catalog.
func (c *Context) Attach(ctx context.Context, cat *catalog.Catalog, annotations map[string]Annotation) error {
	names := make([]string, 0, len(annotations))
	for name := range annotations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !cat.Exists(name) {
			return configErrorf(name, "annotated dataset is not in the catalog")
		}
		hook, err := c.Hook(ctx, name, annotations[name])
		if err != nil {
			return err
		}
		if err := cat.Register(name, hook); err != nil {
			return err
		}
		c.logger.Debug("validation attached",
			"dataset", name,
			"suite", hook.suite.Name,
			"break_on_failure", annotations[name].BreakOnFailure,
		)
	}
	return nil
}

// Bind is the one-call wiring path: locate annotations, build the catalog
// from sanitized configuration, and attach validators.
func (c *Context) Bind(ctx context.Context, cfg catalog.Config, deps catalog.Deps) (*catalog.Catalog, error) {
	annotations, err := Annotations(cfg)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.New(Sanitize(cfg), deps, c.logger)
	if err != nil {
		return nil, err
	}
	if err := c.Attach(ctx, cat, annotations); err != nil {
		return nil, err
	}
	return cat, nil
}
