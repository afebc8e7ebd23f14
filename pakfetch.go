// Package pakfetch exposes the batch builder.
package pakfetch

import (
	"context"
	"fmt"

	"github.com/adamwoolhether/pakfetch/admission"
	"github.com/adamwoolhether/pakfetch/batch"
	"github.com/adamwoolhether/pakfetch/client"
	"github.com/adamwoolhether/pakfetch/download"
	"github.com/adamwoolhether/pakfetch/manifest"
	"github.com/adamwoolhether/pakfetch/metrics"
)

// Engine owns the collaborators of one batch: the HTTP client, the
// downloader, the admission slots and, when configured, the progress
// aggregator and metrics. An Engine runs one batch at a time.
type Engine struct {
	runner  *batch.Runner
	slots   *admission.Slots
	metrics *metrics.Metrics
}

// New wires an Engine from the given options.
// If not specified, NumCPU slots, MD5 and the default client are used.
func New(optFns ...Option) (*Engine, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	fetcher := opts.fetcher
	if fetcher == nil {
		clientOpts := opts.clientOpts
		if opts.logger != nil {
			clientOpts = append([]client.Option{client.WithLogger(opts.logger)}, clientOpts...)
		}
		c, err := client.Build(clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("building client: %w", err)
		}
		fetcher = c
	}

	hashName := opts.hash
	if hashName == "" {
		hashName = "md5"
	}
	newHash, err := download.HashByName(hashName)
	if err != nil {
		return nil, err
	}

	dlOpts := []download.Option{
		download.WithHash(newHash),
		download.WithAttemptTimeout(opts.attemptTimeout),
	}
	batchOpts := []batch.Option{}

	if opts.logger != nil {
		dlOpts = append(dlOpts, download.WithLogger(opts.logger))
		batchOpts = append(batchOpts, batch.WithLogger(opts.logger))
	}
	if opts.tracer != nil {
		dlOpts = append(dlOpts, download.WithTracerProvider(opts.tracer))
		batchOpts = append(batchOpts, batch.WithTracerProvider(opts.tracer))
	}
	if opts.agg != nil {
		batchOpts = append(batchOpts, batch.WithProgress(opts.agg))
	}

	var m *metrics.Metrics
	if opts.reg != nil {
		m = metrics.New(opts.reg)
		dlOpts = append(dlOpts, download.WithObserver(m))
		batchOpts = append(batchOpts, batch.WithRecorder(m))
	}

	dl, err := download.New(fetcher, dlOpts...)
	if err != nil {
		return nil, fmt.Errorf("building downloader: %w", err)
	}

	var slotOpts []admission.Option
	if opts.pollInterval > 0 {
		slotOpts = append(slotOpts, admission.WithPollInterval(opts.pollInterval))
	}
	slots, err := admission.New(opts.concurrency, slotOpts...)
	if err != nil {
		return nil, fmt.Errorf("building admission slots: %w", err)
	}

	if m != nil {
		m.WatchSlots(slots.InUse, slots.Limit)
	}

	runner, err := batch.New(dl, slots, batchOpts...)
	if err != nil {
		return nil, fmt.Errorf("building runner: %w", err)
	}

	return &Engine{
		runner:  runner,
		slots:   slots,
		metrics: m,
	}, nil
}

// Run downloads every entry of m that does not already verify and
// returns once all of them do, or on the first fatal error.
func (e *Engine) Run(ctx context.Context, m *manifest.Manifest) (batch.Report, error) {
	return e.runner.Run(ctx, m)
}

// Status reports the live state of the current batch.
func (e *Engine) Status() batch.Status {
	return e.runner.Status()
}

// Concurrency returns the number of admission slots.
func (e *Engine) Concurrency() int {
	return e.slots.Limit()
}

// Run builds an Engine from opts and runs a single batch with it.
func Run(ctx context.Context, m *manifest.Manifest, opts ...Option) (batch.Report, error) {
	e, err := New(opts...)
	if err != nil {
		return batch.Report{}, err
	}

	return e.Run(ctx, m)
}
