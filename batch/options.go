package batch

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/pakfetch/progress"
)

// Option configures a [Runner] via [New].
type Option func(*options) error

type options struct {
	agg      *progress.Aggregator
	recorder Recorder
	logger   *slog.Logger
	tracer   trace.TracerProvider
}

// WithProgress attaches an indicator to agg for every started entry.
func WithProgress(agg *progress.Aggregator) Option {
	return func(o *options) error {
		if agg == nil {
			return errors.New("aggregator must not be nil")
		}
		o.agg = agg
		return nil
	}
}

func WithRecorder(rec Recorder) Option {
	return func(o *options) error {
		if rec == nil {
			return errors.New("recorder must not be nil")
		}
		o.recorder = rec
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
