// Package main runs the sample service: a gin API whose failures are all
// answered by the exceptions middleware.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http"
	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http/handlers"
	"github.com/jsamuelsen/go-exceptions-api/internal/adapters/http/middleware"
	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
	"github.com/jsamuelsen/go-exceptions-api/internal/platform/config"
	"github.com/jsamuelsen/go-exceptions-api/internal/platform/logging"
	"github.com/jsamuelsen/go-exceptions-api/internal/platform/telemetry"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("correlation_header", cfg.Exceptions.CorrelationHeader),
	)

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		// ctx is already cancelled by the signal at this point.
		if err := telProvider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", err))
		}
	}()

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	exceptionsCfg, err := newExceptionsConfig(cfg, logger, metrics)
	if err != nil {
		return err
	}

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:         logger,
		ServiceName:    cfg.Telemetry.ServiceName,
		Exceptions:     exceptionsCfg,
		Metrics:        metrics,
		HealthHandler:  handlers.NewHealthHandler(handlers.NewBuildInfo(Version, Commit, BuildTime), nil),
		FailureHandler: handlers.NewFailureHandler(),
	})

	return serve(ctx, logger, server, cfg.Server)
}

func newLogger(cfg *config.Config) *slog.Logger {
	file := cfg.Log.File

	return logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    file.Enabled,
			Path:       file.Path,
			MaxSizeMB:  file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAgeDays: file.MaxAgeDays,
			Compress:   file.Compress,
		},
	})
}

// newExceptionsConfig builds the failure registry, failing startup on a bad
// registration, and the recorders every classified failure is reported to.
func newExceptionsConfig(cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (middleware.ExceptionsConfig, error) {
	registry, err := http.RegisterDomainFailures(exceptions.NewBuilder()).Build()
	if err != nil {
		return middleware.ExceptionsConfig{}, fmt.Errorf("building failure registry: %w", err)
	}

	promRecorder, err := telemetry.NewPrometheusRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return middleware.ExceptionsConfig{}, fmt.Errorf("creating prometheus recorder: %w", err)
	}

	correlation := middleware.CorrelationConfig{Key: cfg.Exceptions.CorrelationHeader}
	if cfg.Exceptions.CorrelationFromTrace {
		correlation.Value = telemetry.TraceIDValue
	}

	return middleware.ExceptionsConfig{
		Classifier:             exceptions.NewClassifier(registry, cfg.Exceptions.Defaults()),
		Correlation:            correlation,
		Logger:                 logger,
		Recorders:              []middleware.FailureRecorder{metrics, promRecorder},
		DegradeOnResolverError: cfg.Exceptions.DegradeOnResolverError,
	}, nil
}

// serve runs the server until ctx is cancelled or serving fails, then
// drains in-flight requests within the configured shutdown timeout.
func serve(ctx context.Context, logger *slog.Logger, server *http.Server, cfg config.ServerConfig) error {
	serverErr := server.Start()

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}

		return errors.New("server stopped unexpectedly")
	case <-ctx.Done():
		logger.Info("received shutdown signal", slog.Duration("timeout", cfg.ShutdownTimeout))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
