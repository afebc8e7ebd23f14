package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/pakfetch/manifest"
)

const tracerName = "github.com/adamwoolhether/pakfetch/download"

// Downloader holds what every entry task of a batch shares.
type Downloader struct {
	verifier *Verifier
	executor *Executor
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
}

// New builds a Downloader fetching through f.
func New(f Fetcher, optFns ...Option) (*Downloader, error) {
	if f == nil {
		return nil, errors.New("fetcher must not be nil")
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying download option: %w", err)
		}
	}

	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.observer == nil {
		opts.observer = nopObserver{}
	}
	if opts.tracer == nil {
		opts.tracer = otel.GetTracerProvider()
	}

	return &Downloader{
		verifier: NewVerifier(opts.newHash),
		executor: NewExecutor(f, opts.logger, opts.attemptTimeout),
		logger:   opts.logger,
		observer: opts.observer,
		tracer:   opts.tracer.Tracer(tracerName),
	}, nil
}

// Task binds one manifest entry to its progress tracker.
func (d *Downloader) Task(e manifest.Entry, tr Tracker) *Task {
	if tr == nil {
		tr = nopTracker{}
	}
	return &Task{d: d, entry: e, tracker: tr}
}

// Task drives one entry until its file verifies. It alternates between
// verifying the destination and downloading it again, with no limit on
// the number of attempts.
type Task struct {
	d        *Downloader
	entry    manifest.Entry
	tracker  Tracker
	state    atomic.Int32
	attempts atomic.Int32
}

func (t *Task) Entry() manifest.Entry { return t.entry }
func (t *Task) Path() string          { return t.entry.Path }
func (t *Task) Hash() string          { return t.entry.Hash }
func (t *Task) URL() string           { return t.entry.URL }
func (t *Task) Size() int64           { return t.entry.Size }

// State is safe to call while Run is in progress.
func (t *Task) State() State { return State(t.state.Load()) }

// Attempts reports how many download attempts were started.
func (t *Task) Attempts() int { return int(t.attempts.Load()) }

// AlreadySatisfied reports whether the file verified without any download.
func (t *Task) AlreadySatisfied() bool {
	return t.State() == StateSatisfied && t.Attempts() == 0
}

// Run returns nil once the file at the entry's path hashes to the expected
// value. Failed attempts are retried immediately. Run gives up only when
// ctx is done or when the destination directory cannot be created
// (ErrSetup). A check interrupted by ctx never leads to a download.
func (t *Task) Run(ctx context.Context) error {
	ctx, span := t.d.tracer.Start(ctx, "pakfetch.task", trace.WithAttributes(
		attribute.String("pakfetch.path", t.entry.Path),
		attribute.String("pakfetch.url", t.entry.URL),
		attribute.Int64("pakfetch.size", t.entry.Size),
	))
	defer span.End()

	logger := t.d.logger.With("path", t.entry.Path)
	tr := countingTracker{Tracker: t.tracker, obs: t.d.observer}

	for {
		if err := ctx.Err(); err != nil {
			return t.fail(span, err)
		}

		t.setState(StateVerifying)
		ok, err := t.d.verifier.Verify(ctx, t.entry, t.tracker)
		if ctxErr := ctx.Err(); ctxErr != nil && !ok {
			return t.fail(span, ctxErr)
		}
		t.d.observer.Verified(t.entry.Path, ok)
		if ok {
			t.setState(StateSatisfied)
			t.tracker.Finish()
			span.SetAttributes(attribute.Int("pakfetch.attempts", t.Attempts()))
			logger.Debug("entry satisfied", "attempts", t.Attempts())
			return nil
		}
		if err != nil {
			logger.Debug("verification failed", "error", err)
		}

		attempt := int(t.attempts.Add(1))
		t.setState(StateDownloading)
		t.tracker.Reset()
		span.AddEvent("download attempt", trace.WithAttributes(attribute.Int("attempt", attempt)))
		t.d.observer.AttemptStarted(t.entry.Path)

		err = t.d.executor.Transfer(ctx, t.entry.URL, t.entry.Path, tr)
		if err == nil {
			continue
		}

		if errors.Is(err, ErrSetup) {
			return t.fail(span, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return t.fail(span, ctxErr)
		}

		t.d.observer.AttemptFailed(t.entry.Path, err)
		span.RecordError(err)
		logger.Debug("download attempt failed", "attempt", attempt, "error", err)
	}
}

func (t *Task) fail(span trace.Span, err error) error {
	t.setState(StateFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return fmt.Errorf("%s: %w", t.entry.Path, err)
}

func (t *Task) setState(s State) {
	t.state.Store(int32(s))
}
