// Package server runs the worker's HTTP listener next to its job processor
// and shuts both down on SIGINT or SIGTERM.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	defaultAddress           = ":8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// Hook runs during startup or shutdown.
type Hook func(ctx context.Context) error

// Config holds the runtime settings.
type Config struct {
	Handler         http.Handler
	Logger          *slog.Logger
	Address         string
	ShutdownTimeout time.Duration

	// StartupHooks run in order after the listener is bound and before it
	// serves. A failing hook aborts Run.
	StartupHooks []Hook

	// ShutdownHooks run in order after the HTTP server stops. All hooks run;
	// their errors are joined.
	ShutdownHooks []Hook
}

// Run serves until ctx is cancelled, a signal arrives or the server fails,
// then shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	handler := cfg.Handler
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	for _, hook := range cfg.StartupHooks {
		if err := hook(ctx); err != nil {
			_ = ln.Close()
			return errors.Join(err, shutdown(logger, cfg.ShutdownTimeout, nil, cfg.ShutdownHooks))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return errors.Join(serveErr, shutdown(logger, cfg.ShutdownTimeout, server, cfg.ShutdownHooks))
}

func shutdown(logger *slog.Logger, timeout time.Duration, server *http.Server, hooks []Hook) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error

	// 1. Stop accepting requests.
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	// 2. Stop workers, close pools.
	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
			logger.Error("shutdown hook failed", slog.Any("error", err))
		}
	}

	if len(errs) > 0 {
		logger.Error("shutdown completed with errors")
		return errors.Join(errs...)
	}

	logger.Info("shutdown completed")
	return nil
}
