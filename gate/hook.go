package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grewanderer/datapact/expect"
	"github.com/grewanderer/datapact/frame"
	"github.com/grewanderer/datapact/report"
)

// Validator runs one suite against one dataset's traffic. It is stateless
// across invocations: every call evaluates the payload it is given and
// passes it through unchanged.
type Validator struct {
	dataset        string
	suite          expect.Suite
	breakOnFailure bool
	reports        report.Store
	runID          string
	logger         *slog.Logger
	now            func() time.Time
}

func (v *Validator) OnLoad(ctx context.Context, dataset string, value any) (any, error) {
	return v.validate(ctx, report.EventLoad, dataset, value)
}

func (v *Validator) OnSave(ctx context.Context, dataset string, value any) (any, error) {
	return v.validate(ctx, report.EventSave, dataset, value)
}

func (v *Validator) validate(ctx context.Context, event, dataset string, value any) (any, error) {
	f, ok := value.(*frame.Frame)
	if !ok {
		return nil, fmt.Errorf("validation on dataset %q needs a tabular payload, got %T", dataset, value)
	}

	res := expect.Evaluate(v.suite, f, expect.Options{RunID: v.runID, RunTime: v.now()})

	// The verdict never depends on the archive: a failed write is logged
	// and the result still decides pass or abort.
	reportKey := ""
	if v.reports != nil {
		key, err := report.Write(ctx, v.reports, report.New(dataset, event, res))
		if err != nil {
			v.logger.Error("report archive failed",
				"dataset", dataset,
				"suite", v.suite.Name,
				"event", event,
				"run_id", v.runID,
				"error", err,
			)
		} else {
			reportKey = key
		}
	}

	if res.Success {
		v.logger.Info("validation passed",
			"dataset", dataset,
			"suite", v.suite.Name,
			"event", event,
			"run_id", v.runID,
			"evaluated", res.Statistics.EvaluatedExpectations,
		)
		return value, nil
	}

	failed := res.Failed()
	if v.breakOnFailure {
		listing := make([]string, 0, len(failed))
		for _, exp := range failed {
			if exp.Kwargs.Column != "" {
				listing = append(listing, exp.Type+" "+exp.Kwargs.Column)
				continue
			}
			listing = append(listing, exp.Type)
		}
		v.logger.Error("validation failed, aborting",
			"dataset", dataset,
			"suite", v.suite.Name,
			"event", event,
			"run_id", v.runID,
			"expectations", listing,
		)
		return nil, &FailedValidationError{
			Dataset:   dataset,
			Suite:     v.suite.Name,
			Event:     event,
			RunID:     v.runID,
			Failed:    failed,
			ReportKey: reportKey,
		}
	}

	v.logger.Warn("validation failed, continuing",
		"dataset", dataset,
		"suite", v.suite.Name,
		"event", event,
		"run_id", v.runID,
		"failed", len(failed),
	)
	return value, nil
}
