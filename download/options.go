package download

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a [Downloader] via [New].
type Option func(*options) error

type options struct {
	newHash        HashFunc
	attemptTimeout time.Duration
	logger         *slog.Logger
	observer       Observer
	tracer         trace.TracerProvider
}

// WithHash sets the digest entries are checked against. md5 is used
// when unset.
func WithHash(h HashFunc) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}
		opts.newHash = h
		return nil
	}
}

// WithAttemptTimeout bounds a single download attempt. Zero disables the
// bound. An attempt that times out is retried like any other failure.
func WithAttemptTimeout(d time.Duration) Option {
	return func(opts *options) error {
		if d < 0 {
			return errors.New("attempt timeout must not be negative")
		}
		opts.attemptTimeout = d
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		opts.logger = logger
		return nil
	}
}

// WithObserver registers an [Observer] for task events.
func WithObserver(obs Observer) Option {
	return func(opts *options) error {
		if obs == nil {
			return errors.New("observer must not be nil")
		}
		opts.observer = obs
		return nil
	}
}

// WithTracerProvider sets where task spans go. The global provider is
// used when unset.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(opts *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		opts.tracer = tp
		return nil
	}
}
