package download

import (
	"errors"
	"fmt"
)

var (
	// ErrSetup marks a local failure no retry can fix, such as being
	// unable to create the destination directory. It aborts the batch.
	ErrSetup = errors.New("destination setup failed")

	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrDownloadCancelled     = errors.New("download cancelled")
	ErrUnknownHash           = errors.New("unknown hash algorithm")
)

type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// State is the lifecycle position of a [Task].
type State int32

const (
	StatePending State = iota
	StateVerifying
	StateDownloading
	StateSatisfied
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateVerifying:
		return "verifying"
	case StateDownloading:
		return "downloading"
	case StateSatisfied:
		return "satisfied"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Tracker receives the progress of a single entry. It is usually a
// progress indicator owned by an aggregator.
type Tracker interface {
	// StartCheck switches the tracker to its verification phase.
	StartCheck()
	// EndCheck leaves the verification phase.
	EndCheck()
	SetPosition(n int64)
	Add(n int64)
	Reset()
	Finish()
}

// Observer is notified about task events, typically to record metrics.
type Observer interface {
	Verified(path string, satisfied bool)
	AttemptStarted(path string)
	AttemptFailed(path string, err error)
	BytesWritten(n int64)
}

type nopTracker struct{}

func (nopTracker) StartCheck()       {}
func (nopTracker) EndCheck()         {}
func (nopTracker) SetPosition(int64) {}
func (nopTracker) Add(int64)         {}
func (nopTracker) Reset()            {}
func (nopTracker) Finish()           {}

type nopObserver struct{}

func (nopObserver) Verified(string, bool)       {}
func (nopObserver) AttemptStarted(string)       {}
func (nopObserver) AttemptFailed(string, error) {}
func (nopObserver) BytesWritten(int64)          {}

// NopTracker returns a [Tracker] that discards everything.
func NopTracker() Tracker { return nopTracker{} }

// countingTracker forwards to a Tracker while reporting written bytes.
type countingTracker struct {
	Tracker
	obs Observer
}

func (c countingTracker) Add(n int64) {
	c.Tracker.Add(n)
	c.obs.BytesWritten(n)
}
