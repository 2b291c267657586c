// Package server wires the chi router and runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/br-emissions/internal/core/config"
	"github.com/mohammed-shakir/br-emissions/internal/core/health"
	middleware "github.com/mohammed-shakir/br-emissions/internal/core/middleware"
	"github.com/mohammed-shakir/br-emissions/internal/core/router"
)

// Backend is what the HTTP surface serves from.
type Backend interface {
	router.Data
	health.ReadinessReporter
}

// NewHandler builds the full route tree. metrics may be nil, in which case
// the default Prometheus registry is served when metrics are enabled.
func NewHandler(cfg config.Config, logger *slog.Logger, b Backend, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(b))
	if cfg.MetricsEnabled {
		if metrics == nil {
			metrics = promhttp.Handler()
		}
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	router.Mount(r, logger, cfg, b)
	return r
}

// Run serves until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, h http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
