// Package batch runs every entry of a manifest to completion under a
// shared concurrency limit.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/adamwoolhether/pakfetch/admission"
	"github.com/adamwoolhether/pakfetch/download"
	"github.com/adamwoolhether/pakfetch/manifest"
	"github.com/adamwoolhether/pakfetch/progress"
)

const tracerName = "github.com/adamwoolhether/pakfetch/batch"

// Recorder receives batch level outcomes, typically metrics.
type Recorder interface {
	EntryDone(alreadyPresent bool)
	ObserveBatch(d time.Duration)
}

// Report summarizes a batch in which every entry was satisfied.
type Report struct {
	RunID          uuid.UUID     `json:"run_id"`
	Entries        int           `json:"entries"`
	AlreadyPresent int           `json:"already_present"`
	Downloaded     int           `json:"downloaded"`
	Attempts       int           `json:"attempts"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Runner starts one [download.Task] per manifest entry, holding an
// admission slot for the lifetime of each.
type Runner struct {
	dl       *download.Downloader
	slots    *admission.Slots
	agg      *progress.Aggregator
	recorder Recorder
	logger   *slog.Logger
	tracer   trace.Tracer

	mu    sync.Mutex
	runID uuid.UUID
	total int
	tasks []*download.Task
}

// New builds a Runner. The downloader and slots are required.
func New(dl *download.Downloader, slots *admission.Slots, optFns ...Option) (*Runner, error) {
	if dl == nil {
		return nil, errors.New("downloader must not be nil")
	}
	if slots == nil {
		return nil, errors.New("slots must not be nil")
	}

	opts := options{
		logger: slog.Default(),
		tracer: otel.GetTracerProvider(),
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying batch option: %w", err)
		}
	}

	return &Runner{
		dl:       dl,
		slots:    slots,
		agg:      opts.agg,
		recorder: opts.recorder,
		logger:   opts.logger,
		tracer:   opts.tracer.Tracer(tracerName),
	}, nil
}

// Run drives every entry of m until its file verifies. Entries are
// admitted in manifest order; each waits for a free slot before its task
// starts. Run returns only after every started task has returned.
//
// The first fatal task error, or the end of ctx, cancels the remaining
// tasks and is returned. Entries not yet admitted at that point are
// never started.
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest) (Report, error) {
	runID := uuid.New()
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "pakfetch.batch", trace.WithAttributes(
		attribute.String("pakfetch.run_id", runID.String()),
		attribute.Int("pakfetch.entries", m.Len()),
		attribute.Int("pakfetch.concurrency", r.slots.Limit()),
	))
	defer span.End()

	r.reset(runID, m.Len())

	logger := r.logger.With("run_id", runID)
	logger.Info("batch started",
		"entries", m.Len(),
		"bytes", m.TotalSize(),
		"concurrency", r.slots.Limit(),
	)

	g, gctx := errgroup.WithContext(ctx)

	var admitErr error
	for _, e := range m.Entries() {
		if err := r.slots.Acquire(gctx); err != nil {
			admitErr = err
			break
		}

		task := r.dl.Task(e, r.tracker(e))
		r.track(task)

		g.Go(func() error {
			defer r.slots.Release()

			if err := task.Run(gctx); err != nil {
				return err
			}
			if r.recorder != nil {
				r.recorder.EntryDone(task.AlreadySatisfied())
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = admitErr
	}

	report := r.report(runID, m.Len(), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, fmt.Errorf("batch %s: %w", runID, err)
	}

	if r.recorder != nil {
		r.recorder.ObserveBatch(report.Elapsed)
	}

	logger.Info("batch complete",
		"entries", report.Entries,
		"already_present", report.AlreadyPresent,
		"downloaded", report.Downloaded,
		"attempts", report.Attempts,
		"elapsed", report.Elapsed.Round(time.Millisecond),
	)

	return report, nil
}

func (r *Runner) tracker(e manifest.Entry) download.Tracker {
	if r.agg == nil {
		return download.NopTracker()
	}
	return r.agg.Attach(e.Name(), e.Size)
}

func (r *Runner) reset(runID uuid.UUID, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runID = runID
	r.total = total
	r.tasks = make([]*download.Task, 0, total)
}

func (r *Runner) track(t *download.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = append(r.tasks, t)
}

func (r *Runner) report(runID uuid.UUID, entries int, elapsed time.Duration) Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := Report{RunID: runID, Entries: entries, Elapsed: elapsed}
	for _, t := range r.tasks {
		rep.Attempts += t.Attempts()
		if t.State() != download.StateSatisfied {
			continue
		}
		if t.AlreadySatisfied() {
			rep.AlreadyPresent++
		} else {
			rep.Downloaded++
		}
	}
	return rep
}
