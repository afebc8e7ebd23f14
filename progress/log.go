package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const logTick = 250 * time.Millisecond

// logRenderer reports indicators as structured log records, at most once
// per interval each, plus one record when an indicator finishes.
type logRenderer struct {
	*directPrinter
	agg      *Aggregator
	logger   func() *slog.Logger
	interval time.Duration

	mu        sync.Mutex
	sometimes map[*Indicator]*rate.Sometimes
}

func newLogRenderer(agg *Aggregator, p *directPrinter, logger func() *slog.Logger, interval time.Duration) *logRenderer {
	return &logRenderer{
		directPrinter: p,
		agg:           agg,
		logger:        logger,
		interval:      interval,
		sometimes:     make(map[*Indicator]*rate.Sometimes),
	}
}

func (r *logRenderer) run(ctx context.Context) {
	ticker := time.NewTicker(min(logTick, r.interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *logRenderer) report() {
	for _, ind := range r.agg.active() {
		r.mu.Lock()
		s := r.sometimes[ind]
		r.mu.Unlock()
		if s == nil {
			continue
		}

		s.Do(func() {
			st := ind.State()
			msg := "downloading"
			if st.Checking {
				msg = "verifying"
			}
			r.logger().Info(msg, stateAttrs(st)...)
		})
	}
}

func (r *logRenderer) attached(ind *Indicator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sometimes[ind] = &rate.Sometimes{Interval: r.interval}
}

func (r *logRenderer) finished(ind *Indicator) {
	r.mu.Lock()
	delete(r.sometimes, ind)
	r.mu.Unlock()

	r.logger().Info("entry complete", stateAttrs(ind.State())...)
}

func stateAttrs(st State) []any {
	attrs := []any{
		"file", st.Name,
		"progress", percent(st.Position, st.Total),
		"elapsed", st.Elapsed.Round(time.Millisecond),
		"transferred", st.Position,
		"total", st.Total,
	}
	if secs := st.Elapsed.Seconds(); secs > 0 && !st.Checking {
		attrs = append(attrs, "mbps", fmt.Sprintf("%.2f", float64(st.Position)/secs/(1024*1024)))
	}
	return attrs
}
