package progress

import (
	"sync/atomic"
	"time"
)

// Indicator tracks the progress of one entry. Its methods only touch
// atomics so they are safe to call for every chunk written.
type Indicator struct {
	name     string
	total    int64
	started  time.Time
	position atomic.Int64
	checking atomic.Bool
	done     atomic.Bool
	elapsed  atomic.Int64
	onFinish func(*Indicator)
}

// State is a point-in-time copy of an [Indicator].
type State struct {
	Name     string        `json:"name"`
	Total    int64         `json:"total"`
	Position int64         `json:"position"`
	Checking bool          `json:"checking"`
	Finished bool          `json:"finished"`
	Elapsed  time.Duration `json:"elapsed"`
}

func (i *Indicator) Name() string { return i.name }

// StartCheck marks the indicator as verifying existing content.
func (i *Indicator) StartCheck() { i.checking.Store(true) }

func (i *Indicator) EndCheck() { i.checking.Store(false) }

func (i *Indicator) SetPosition(n int64) { i.position.Store(n) }

func (i *Indicator) Add(n int64) { i.position.Add(n) }

// Reset rewinds the indicator for a new download attempt.
func (i *Indicator) Reset() {
	i.checking.Store(false)
	i.position.Store(0)
}

// Finish marks the entry as done. Only the first call has an effect.
func (i *Indicator) Finish() {
	if !i.done.CompareAndSwap(false, true) {
		return
	}
	i.checking.Store(false)
	i.elapsed.Store(int64(time.Since(i.started)))
	if i.onFinish != nil {
		i.onFinish(i)
	}
}

func (i *Indicator) Finished() bool { return i.done.Load() }

func (i *Indicator) State() State {
	s := State{
		Name:     i.name,
		Total:    i.total,
		Position: i.position.Load(),
		Checking: i.checking.Load(),
		Finished: i.done.Load(),
	}
	if s.Finished {
		s.Elapsed = time.Duration(i.elapsed.Load())
	} else {
		s.Elapsed = time.Since(i.started)
	}
	return s
}
