package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server wraps an [http.Server] whose lifetime follows a context.
type Server struct {
	srv             *http.Server
	ln              net.Listener
	shutdownTimeout time.Duration
	logger          *slog.Logger
	shutdownFuncs   []shutdownFunc
	ready           chan struct{}
	addr            net.Addr
}

// New creates a Server for the given handler. A default host of
// "127.0.0.1:9100", short timeouts, and the default slog logger are used
// unless overridden via options.
func New(handler http.Handler, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	srv := &http.Server{
		Addr:              "127.0.0.1:9100",
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if o.host != "" {
		srv.Addr = o.host
	}
	if o.readTimeout != 0 {
		srv.ReadTimeout = o.readTimeout
	}
	if o.writeTimeout != 0 {
		srv.WriteTimeout = o.writeTimeout
	}
	if o.idleTimeout != 0 {
		srv.IdleTimeout = o.idleTimeout
	}

	s := Server{
		srv:             srv,
		ln:              o.listener,
		shutdownTimeout: 5 * time.Second,
		logger:          slog.Default(),
		shutdownFuncs:   o.shutdownFuncs,
		ready:           make(chan struct{}),
	}

	if o.shutdownTimeout != 0 {
		s.shutdownTimeout = o.shutdownTimeout
	}
	if o.logger != nil {
		s.logger = o.logger
		srv.ErrorLog = slog.NewLogLogger(o.logger.Handler(), slog.LevelError)
	}

	return &s
}

// Run serves until ctx is done, then shuts down gracefully within the
// shutdown timeout. It returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln := s.ln
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", s.srv.Addr); err != nil {
			close(s.ready)
			return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
		}
	}
	s.addr = ln.Addr()
	close(s.ready)

	serverErrs := make(chan error, 1)
	go func() {
		s.logger.Info("server started", "addr", s.addr.String())
		serverErrs <- s.srv.Serve(ln)
	}()

	select {
	case err := <-serverErrs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown started")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}

		s.logger.Info("shutdown complete")

		return nil
	}
}

// Addr blocks until Run is listening and returns the bound address. It
// returns nil if Run failed to listen.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

// Shutdown runs any registered shutdown functions in order, then drains
// in-flight requests. Callers should set a deadline on ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, fn := range s.shutdownFuncs {
		if err := fn(ctx); err != nil {
			s.logger.Error("shutdown func", "error", err)
		}
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		s.srv.Close()
		return fmt.Errorf("server didn't stop gracefully: %w", err)
	}

	return nil
}
