package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/grewanderer/datapact/catalog"
	"github.com/grewanderer/datapact/frame"
	"github.com/grewanderer/datapact/gate"
	"github.com/grewanderer/datapact/internal/platform/env"
	"github.com/grewanderer/datapact/internal/platform/objectstore"
	"github.com/grewanderer/datapact/internal/platform/postgres"
	"github.com/grewanderer/datapact/report"
)

func runCheck(args []string) {
	flags := flag.NewFlagSet("check", flag.ExitOnError)
	var (
		confDir   = flags.String("conf", envOr("DATAPACT_CONF_DIR", "conf"), "catalog configuration directory")
		suitesDir = flags.String("suites", envOr("DATAPACT_SUITES_DIR", "suites"), "expectation suite directory")
	)
	_ = flags.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := newLogger()

	cfg, err := catalog.LoadConfig(os.DirFS(*confDir))
	if err != nil {
		die("load catalog config", err)
	}
	annotations, err := gate.Annotations(cfg)
	if err != nil {
		die("locate annotations", err)
	}

	deps, cleanup, err := buildDeps(ctx, logger)
	if err != nil {
		die("wire storage handles", err)
	}
	defer cleanup()

	cat, err := catalog.New(gate.Sanitize(cfg), deps, logger)
	if err != nil {
		die("build catalog", err)
	}

	gctx, err := gate.NewContext(gate.Config{Suites: os.DirFS(*suitesDir), Logger: logger})
	if err != nil {
		die("build validation context", err)
	}

	fmt.Printf("==> catalog: %d datasets, %d annotated\n", len(cfg), len(annotations))

	var failures int
	for _, name := range cat.List() {
		desc, err := cat.Describe(name)
		if err != nil {
			die("describe dataset", err)
		}
		ann, ok := annotations[name]
		if !ok {
			fmt.Printf("    %s: %s\n", name, desc)
			continue
		}
		if _, err := gctx.Hook(ctx, name, ann); err != nil {
			failures++
			fmt.Printf("    %s: %s\n        error: %v\n", name, desc, err)
			continue
		}
		mode := "abort"
		if !ann.BreakOnFailure {
			mode = "report-only"
		}
		fmt.Printf("    %s: %s [suite %s, %s]\n", name, desc, ann.SuitePath, mode)
	}

	if failures > 0 {
		die("check", fmt.Errorf("%d annotated dataset(s) failed", failures))
	}
	fmt.Println("==> check passed")
}

func runValidate(args []string) {
	flags := flag.NewFlagSet("validate", flag.ExitOnError)
	var (
		confDir    = flags.String("conf", envOr("DATAPACT_CONF_DIR", "conf"), "catalog configuration directory")
		suitesDir  = flags.String("suites", envOr("DATAPACT_SUITES_DIR", "suites"), "expectation suite directory")
		name       = flags.String("dataset", "", "dataset to load through its gates")
		runID      = flags.String("run-id", "", "run identifier (default: generated)")
		reportsDir = flags.String("reports", "", "report directory (overrides DATAPACT_REPORTS_DIR)")
	)
	_ = flags.Parse(args)
	if strings.TrimSpace(*name) == "" {
		die("validate", errors.New("-dataset is required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := newLogger()

	cat, gctx, cleanup := bindCatalog(ctx, logger, *confDir, *suitesDir, *runID, *reportsDir)
	defer cleanup()

	fmt.Printf("==> run %s: loading %s through its gates\n", gctx.RunID(), *name)
	value, err := cat.Load(ctx, *name)
	if err != nil {
		exitValidation("load dataset", err)
	}

	if f, ok := value.(*frame.Frame); ok {
		fmt.Printf("==> validation passed: %d rows, %d columns (run %s)\n", f.NumRows(), f.NumCols(), gctx.RunID())
		return
	}
	fmt.Printf("==> load passed (run %s)\n", gctx.RunID())
}

func runCopy(args []string) {
	flags := flag.NewFlagSet("copy", flag.ExitOnError)
	var (
		confDir    = flags.String("conf", envOr("DATAPACT_CONF_DIR", "conf"), "catalog configuration directory")
		suitesDir  = flags.String("suites", envOr("DATAPACT_SUITES_DIR", "suites"), "expectation suite directory")
		from       = flags.String("from", "", "source dataset")
		to         = flags.String("to", "", "destination dataset")
		runID      = flags.String("run-id", "", "run identifier (default: generated)")
		reportsDir = flags.String("reports", "", "report directory (overrides DATAPACT_REPORTS_DIR)")
	)
	_ = flags.Parse(args)
	if strings.TrimSpace(*from) == "" || strings.TrimSpace(*to) == "" {
		die("copy", errors.New("-from and -to are required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := newLogger()

	cat, gctx, cleanup := bindCatalog(ctx, logger, *confDir, *suitesDir, *runID, *reportsDir)
	defer cleanup()

	fmt.Printf("==> run %s: copying %s to %s\n", gctx.RunID(), *from, *to)
	value, err := cat.Load(ctx, *from)
	if err != nil {
		exitValidation("load source dataset", err)
	}
	if f, ok := value.(*frame.Frame); ok {
		fmt.Printf("==> loaded %s: %d rows, %d columns\n", *from, f.NumRows(), f.NumCols())
	}

	if err := cat.Save(ctx, *to, value); err != nil {
		exitValidation("save destination dataset", err)
	}
	fmt.Printf("==> copied %s to %s (run %s)\n", *from, *to, gctx.RunID())
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

// bindCatalog assembles the full gated catalog: configuration, storage
// handles, report store, and validation context. Dies on any failure.
func bindCatalog(ctx context.Context, logger *slog.Logger, confDir, suitesDir, runID, reportsDir string) (*catalog.Catalog, *gate.Context, func()) {
	cfg, err := catalog.LoadConfig(os.DirFS(confDir))
	if err != nil {
		die("load catalog config", err)
	}

	deps, cleanup, err := buildDeps(ctx, logger)
	if err != nil {
		die("wire storage handles", err)
	}

	store, err := newReportStore(ctx, reportsDir)
	if err != nil {
		die("open report store", err)
	}

	gctx, err := gate.NewContext(gate.Config{
		Suites:  os.DirFS(suitesDir),
		Reports: store,
		RunID:   runID,
		Logger:  logger,
	})
	if err != nil {
		die("build validation context", err)
	}

	cat, err := gctx.Bind(ctx, cfg, deps)
	if err != nil {
		die("bind catalog", err)
	}
	return cat, gctx, cleanup
}

// buildDeps opens the optional storage handles datasets may need. A handle
// is only opened when its configuration is present in the environment.
func buildDeps(ctx context.Context, logger *slog.Logger) (catalog.Deps, func(), error) {
	deps := catalog.Deps{}
	cleanup := func() {}

	if env.String("DATAPACT_DATABASE_URL", "") != "" {
		dbCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			return deps, cleanup, err
		}
		db, err := postgres.Open(ctx, dbCfg)
		if err != nil {
			return deps, cleanup, err
		}
		deps.DB = db
		cleanup = func() { _ = db.Close() }
		logger.Info("postgres handle opened")
	}

	if env.String("DATAPACT_S3_ENDPOINT", "") != "" {
		storeCfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			return deps, cleanup, err
		}
		client, err := objectstore.NewClient(storeCfg)
		if err != nil {
			return deps, cleanup, err
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := objectstore.EnsureBuckets(startupCtx, client, storeCfg); err != nil {
			return deps, cleanup, err
		}
		deps.Objects = client
		deps.Bucket = storeCfg.BucketData
		logger.Info("object store handle opened", "endpoint", storeCfg.Endpoint)
	}

	return deps, cleanup, nil
}

// newReportStore picks the report archive: an explicit directory override,
// the object store when DATAPACT_REPORTS_S3 is set, a local directory
// otherwise.
func newReportStore(ctx context.Context, dirOverride string) (report.Store, error) {
	if strings.TrimSpace(dirOverride) != "" {
		return report.NewFSStore(dirOverride)
	}

	useS3, err := env.Bool("DATAPACT_REPORTS_S3", false)
	if err != nil {
		return nil, err
	}
	if !useS3 {
		return report.NewFSStore(env.String("DATAPACT_REPORTS_DIR", "reports"))
	}

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	client, err := objectstore.NewClient(storeCfg)
	if err != nil {
		return nil, err
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := objectstore.EnsureBuckets(startupCtx, client, storeCfg); err != nil {
		return nil, err
	}
	return report.NewMinioStore(client, storeCfg.BucketReports)
}

func exitValidation(step string, err error) {
	var failed *gate.FailedValidationError
	if !errors.As(err, &failed) {
		die(step, err)
	}

	fmt.Fprintf(os.Stderr, "error: suite %q failed on dataset %q during %s: %d expectations unmet\n",
		failed.Suite, failed.Dataset, failed.Event, len(failed.Failed))
	for _, exp := range failed.Failed {
		if exp.Kwargs.Column != "" {
			fmt.Fprintf(os.Stderr, "    %s [%s]\n", exp.Type, exp.Kwargs.Column)
			continue
		}
		fmt.Fprintf(os.Stderr, "    %s\n", exp.Type)
	}
	if failed.ReportKey != "" {
		fmt.Fprintf(os.Stderr, "    report: %s\n", failed.ReportKey)
	}
	os.Exit(1)
}
