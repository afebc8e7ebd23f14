// Package admission bounds how many transfers run at once.
//
// [Slots] is a counting semaphore that waiters poll on a fixed interval
// instead of being woken. With the default 20ms interval the added
// latency is negligible next to a transfer.
package admission

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// DefaultPollInterval is how often a blocked Acquire rechecks the counter.
const DefaultPollInterval = 20 * time.Millisecond

// ErrOverRelease is the panic value of a Release without a matching Acquire.
var ErrOverRelease = errors.New("admission: release without acquire")

// Slots hands out at most Limit concurrent admissions.
type Slots struct {
	mu        sync.Mutex
	available int
	limit     int
	interval  time.Duration
}

// Option configures [Slots] via [New].
type Option func(*Slots) error

// WithPollInterval changes how often a blocked Acquire rechecks.
func WithPollInterval(d time.Duration) Option {
	return func(s *Slots) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		s.interval = d
		return nil
	}
}

// New returns Slots admitting up to limit holders. A limit of 0 uses
// runtime.NumCPU.
func New(limit int, optFns ...Option) (*Slots, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit must not be negative: %d", limit)
	}
	if limit == 0 {
		limit = runtime.NumCPU()
	}

	s := &Slots{
		available: limit,
		limit:     limit,
		interval:  DefaultPollInterval,
	}

	for _, opt := range optFns {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("applying admission option: %w", err)
		}
	}

	return s, nil
}

// Acquire blocks until a slot is free and takes it. The counter is
// checked once right away and then again on every poll tick. If ctx ends
// first, Acquire returns its error and holds nothing.
func (s *Slots) Acquire(ctx context.Context) error {
	if s.TryAcquire() {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.TryAcquire() {
				return nil
			}
		}
	}
}

// TryAcquire takes a slot if one is free, without waiting.
func (s *Slots) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.available == 0 {
		return false
	}
	s.available--

	return true
}

// Release returns a slot. It panics with ErrOverRelease when every slot
// is already free.
func (s *Slots) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.available == s.limit {
		panic(ErrOverRelease)
	}
	s.available++
}

func (s *Slots) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *Slots) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit - s.available
}

func (s *Slots) Limit() int { return s.limit }
