package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cnosuke/multi-get/aggregator"
	"github.com/cnosuke/multi-get/config"
	"github.com/cnosuke/multi-get/fetcher"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Run - Execute the HTTP API server until ctx is done
func Run(ctx context.Context, cfg *config.Config, name string, version string, revision string) error {
	zap.S().Infow("starting HTTP API server",
		"name", name,
		"version", versionString(version, revision),
		"addr", cfg.Addr())

	metrics := aggregator.NewMetrics()
	agg := aggregator.New(fetcher.NewHTTPFetcher(&fetcher.Config{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	}), metrics)

	handler := RegisterAllRoutes(
		http.NewServeMux(),
		NewRequestHandler(agg, cfg.Headers, cfg.Server.MaxBodyBytes),
		metrics,
		cfg.Server.CORSOrigin,
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		zap.S().Errorw("failed to start server", "error", err)
		return errors.Wrap(err, "failed to start server")
	case <-ctx.Done():
	}

	zap.S().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down server")
	}
	return nil
}

// versionString formats version with revision if available
func versionString(version, revision string) string {
	if revision != "" && revision != "xxx" {
		return version + " (" + revision + ")"
	}
	return version
}
