package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grewanderer/datapact/internal/platform/auth"
	"github.com/grewanderer/datapact/internal/platform/env"
	"github.com/grewanderer/datapact/internal/platform/httpserver"
	"github.com/grewanderer/datapact/internal/platform/objectstore"
	"github.com/grewanderer/datapact/report"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("DATAPACT_DOCS_ADDR", ":8086")
	shutdownTimeout, err := env.Duration("DATAPACT_DOCS_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	store, err := newReportStore(ctx, logger)
	if err != nil {
		logger.Error("report store init failed", "error", err)
		os.Exit(1)
	}

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(2)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("datapact-docs"))
	mux.HandleFunc(
		"/readyz",
		httpserver.Readyz(
			"datapact-docs",
			httpserver.ReadinessCheck{
				Name: "report-store",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					_, err := store.List(checkCtx, "validations/")
					return err
				},
			},
		),
	)

	api := newDocsAPI(logger, store)
	api.register(mux)

	var handler http.Handler = mux
	switch authCfg.Mode {
	case auth.ModeDisabled:
	case auth.ModeDev:
		handler = auth.Middleware{
			Logger:        logger,
			Authenticator: auth.NewDevAuthenticator(authCfg),
			SkipPrefixes:  []string{"/healthz", "/readyz"},
		}.Wrap(mux)
	case auth.ModeOIDC:
		authenticator, err := auth.NewOIDCAuthenticator(ctx, authCfg)
		if err != nil {
			logger.Error("oidc init failed", "error", err)
			os.Exit(1)
		}
		handler = auth.Middleware{
			Logger:        logger,
			Authenticator: authenticator,
			SkipPrefixes:  []string{"/healthz", "/readyz"},
		}.Wrap(mux)
	}

	cfg := httpserver.Config{
		Service:         "datapact-docs",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "datapact-docs", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// newReportStore picks the backing store: a MinIO bucket when
// DATAPACT_REPORTS_S3 is set, a local directory otherwise.
func newReportStore(ctx context.Context, logger *slog.Logger) (report.Store, error) {
	useS3, err := env.Bool("DATAPACT_REPORTS_S3", false)
	if err != nil {
		return nil, err
	}

	if !useS3 {
		dir := env.String("DATAPACT_REPORTS_DIR", "reports")
		store, err := report.NewFSStore(dir)
		if err != nil {
			return nil, err
		}
		logger.Info("serving reports from directory", "dir", dir)
		return store, nil
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
	if err := objectstore.CheckBuckets(startupCtx, client, storeCfg); err != nil {
		return nil, err
	}
	logger.Info("serving reports from object store", "endpoint", storeCfg.Endpoint, "bucket", storeCfg.BucketReports)
	return report.NewMinioStore(client, storeCfg.BucketReports)
}
