package pakfetch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/pakfetch/client"
	"github.com/adamwoolhether/pakfetch/download"
	"github.com/adamwoolhether/pakfetch/progress"
)

// Option defines optional settings for an [Engine].
//
// WithConcurrency caps simultaneous transfers (0 means NumCPU).
// WithClientOptions configures the default HTTP client.
// WithFetcher replaces the HTTP client entirely.
type Option func(*options) error

type options struct {
	concurrency    int
	pollInterval   time.Duration
	hash           string
	attemptTimeout time.Duration
	clientOpts     []client.Option
	fetcher        download.Fetcher
	agg            *progress.Aggregator
	reg            prometheus.Registerer
	logger         *slog.Logger
	tracer         trace.TracerProvider
}

func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("concurrency must not be negative")
		}
		o.concurrency = n
		return nil
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		o.pollInterval = d
		return nil
	}
}

// WithHash selects the digest by name: md5, sha1 or sha256.
func WithHash(name string) Option {
	return func(o *options) error {
		if _, err := download.HashByName(name); err != nil {
			return err
		}
		o.hash = name
		return nil
	}
}

func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("attempt timeout must not be negative")
		}
		o.attemptTimeout = d
		return nil
	}
}

func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) error {
		o.clientOpts = append(o.clientOpts, opts...)
		return nil
	}
}

func WithFetcher(f download.Fetcher) Option {
	return func(o *options) error {
		if f == nil {
			return errors.New("fetcher must not be nil")
		}
		o.fetcher = f
		return nil
	}
}

func WithProgress(agg *progress.Aggregator) Option {
	return func(o *options) error {
		if agg == nil {
			return errors.New("aggregator must not be nil")
		}
		o.agg = agg
		return nil
	}
}

// WithRegisterer enables Prometheus metrics registered on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return errors.New("registerer must not be nil")
		}
		o.reg = reg
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		o.tracer = tp
		return nil
	}
}
