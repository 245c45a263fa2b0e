package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mcav91/partfs/internal/logger"
)

// Server manages the lifecycle of the HTTP upload surface.
//
// Lifecycle:
//  1. Creation: NewServer() with a configured Handler
//  2. Startup: Serve() binds the listener and blocks
//  3. Shutdown: context cancellation drains in-flight requests, bounded by
//     the shutdown timeout
//
// Serve() should only be called once per instance.
type Server struct {
	handler *Handler

	// addr is the listen address, e.g. ":8080".
	addr string

	// shutdownTimeout bounds how long graceful shutdown waits for in-flight
	// requests before forcing the listener closed.
	shutdownTimeout time.Duration
}

// ServerConfig carries the listener settings for NewServer.
type ServerConfig struct {
	// Addr is the address to bind, in net.Listen form.
	Addr string

	// ShutdownTimeout bounds graceful shutdown. Zero means 30 seconds.
	ShutdownTimeout time.Duration
}

// NewServer creates a server around the given handler.
func NewServer(handler *Handler, cfg ServerConfig) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Server{
		handler:         handler,
		addr:            cfg.Addr,
		shutdownTimeout: timeout,
	}, nil
}

// Serve binds the listener and blocks until the context is cancelled or the
// listener fails.
//
// On cancellation, in-flight requests are drained for up to the shutdown
// timeout; returns context.Canceled after a clean drain.
func (s *Server) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/files/", s.handler)

	httpServer := &http.Server{
		Addr:        s.addr,
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Upload server listening on %s", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Forced shutdown after drain timeout: %v", err)
			return fmt.Errorf("shutting down: %w", err)
		}

		logger.Info("Upload server stopped gracefully")
		return ctx.Err()

	case err := <-errChan:
		logger.Error("Upload server failed: %v", err)
		return fmt.Errorf("serving: %w", err)
	}
}
