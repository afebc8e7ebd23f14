// Package progress shows how far every running entry of a batch has
// come.
//
// An [Aggregator] owns one [Indicator] per started entry and renders them
// according to its [Mode]. Log output of the process should go through
// [Aggregator.Writer] so that it never tears the live bars apart.
package progress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Mode selects how indicators are rendered.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeTTY  Mode = "tty"
	ModeLog  Mode = "log"
	ModeNone Mode = "none"
)

var ErrUnknownMode = errors.New("unknown progress mode")

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAuto, ModeTTY, ModeLog, ModeNone:
		return m, nil
	case "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

type renderer interface {
	// run renders until ctx is done.
	run(ctx context.Context)
	attached(*Indicator)
	finished(*Indicator)
	// print writes one complete line of unrelated output.
	print(line string)
}

// Aggregator collects the indicators of a batch.
type Aggregator struct {
	mu         sync.Mutex
	indicators []*Indicator
	mode       Mode
	r          renderer
	w          *lineWriter

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures an [Aggregator] via [New].
type Option func(*options) error

type options struct {
	logger   func() *slog.Logger
	interval time.Duration
}

// WithLogger sets where log mode reports go. The function is called on
// every report so it may return a logger built after the aggregator,
// typically one writing to [Aggregator.Writer].
func WithLogger(fn func() *slog.Logger) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.New("logger func must not be nil")
		}
		o.logger = fn
		return nil
	}
}

// WithLogInterval sets the minimum time between two log mode reports of
// the same indicator. The default is one second.
func WithLogInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("log interval must be positive")
		}
		o.interval = d
		return nil
	}
}

// New returns an Aggregator rendering to out. ModeAuto resolves to
// ModeTTY when out is a terminal and to ModeLog otherwise.
func New(out io.Writer, mode Mode, optFns ...Option) (*Aggregator, error) {
	opts := options{
		logger:   slog.Default,
		interval: time.Second,
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying progress option: %w", err)
		}
	}

	if mode == ModeAuto {
		mode = ModeLog
		if IsTTY(out) {
			mode = ModeTTY
		}
	}

	a := &Aggregator{mode: mode, done: make(chan struct{})}

	direct := &directPrinter{out: out}
	switch mode {
	case ModeTTY:
		a.r = newTeaRenderer(a, out)
	case ModeLog:
		a.r = newLogRenderer(a, direct, opts.logger, opts.interval)
	case ModeNone:
		a.r = noneRenderer{directPrinter: direct}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	a.w = &lineWriter{print: a.r.print}

	return a, nil
}

// Mode returns the resolved rendering mode.
func (a *Aggregator) Mode() Mode { return a.mode }

// Start begins rendering in the background. Call Stop to end it.
func (a *Aggregator) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		ctx, a.cancel = context.WithCancel(ctx)
		go func() {
			defer close(a.done)
			a.r.run(ctx)
		}()
	})
}

// Stop ends rendering and waits for the renderer to flush. It is a no-op
// when Start was never called.
func (a *Aggregator) Stop() {
	a.startOnce.Do(func() { close(a.done) })
	if a.cancel != nil {
		a.cancel()
	}
	<-a.done
	a.w.flush()
}

// Attach registers a new indicator for an entry of total bytes.
func (a *Aggregator) Attach(name string, total int64) *Indicator {
	ind := &Indicator{
		name:     name,
		total:    total,
		started:  time.Now(),
		onFinish: a.finished,
	}

	a.mu.Lock()
	a.indicators = append(a.indicators, ind)
	a.mu.Unlock()

	a.r.attached(ind)

	return ind
}

func (a *Aggregator) finished(ind *Indicator) {
	a.r.finished(ind)
}

// Snapshot copies the state of every indicator in attach order.
func (a *Aggregator) Snapshot() []State {
	a.mu.Lock()
	defer a.mu.Unlock()

	states := make([]State, len(a.indicators))
	for i, ind := range a.indicators {
		states[i] = ind.State()
	}
	return states
}

// active returns the indicators that have not finished yet.
func (a *Aggregator) active() []*Indicator {
	a.mu.Lock()
	defer a.mu.Unlock()

	return slices.DeleteFunc(slices.Clone(a.indicators), (*Indicator).Finished)
}

// Writer returns an io.Writer that prints complete lines without
// corrupting the rendered indicators. It is safe for concurrent use.
func (a *Aggregator) Writer() io.Writer { return a.w }

// lineWriter buffers writes and hands out complete lines.
type lineWriter struct {
	mu    sync.Mutex
	buf   []byte
	print func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.print(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.print(string(w.buf))
		w.buf = nil
	}
}

// directPrinter writes lines straight to out under a mutex.
type directPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *directPrinter) print(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

type noneRenderer struct {
	*directPrinter
}

func (noneRenderer) run(ctx context.Context) { <-ctx.Done() }
func (noneRenderer) attached(*Indicator)     {}
func (noneRenderer) finished(*Indicator)     {}
