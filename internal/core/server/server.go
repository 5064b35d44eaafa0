// Package server assembles the HTTP handler tree and runs it until the
// context is canceled.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/digipin-courier/internal/core/health"
	middleware "github.com/mohammed-shakir/digipin-courier/internal/core/middleware"
	"github.com/mohammed-shakir/digipin-courier/internal/core/router"
)

type Options struct {
	Addr string
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	// Ready backs /readyz; nil means always ready.
	Ready        health.Pinger
	ReadyTimeout time.Duration
}

type alwaysReady struct{}

func (alwaysReady) Ping(context.Context) error { return nil }

// Handler builds the full route tree.
func Handler(opts Options, logger *slog.Logger, api *router.API) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	ready := opts.Ready
	if ready == nil {
		ready = alwaysReady{}
	}
	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(ready, opts.ReadyTimeout))
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	api.Mount(r)
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, opts Options, logger *slog.Logger, api *router.API) error {
	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, opts, logger, api)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, opts Options, logger *slog.Logger, api *router.API) error {
	srv := &http.Server{
		Handler:           Handler(opts, logger, api),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
