package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const defaultBufSize = 32 << 10

// Fetcher opens the remote body for a URL, reporting its announced
// length or -1 when unknown.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Executor performs one download attempt: it truncates the destination
// and streams the remote body into it.
type Executor struct {
	fetcher        Fetcher
	logger         *slog.Logger
	attemptTimeout time.Duration
	bufSize        int
}

func NewExecutor(fetcher Fetcher, logger *slog.Logger, attemptTimeout time.Duration) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		fetcher:        fetcher,
		logger:         logger,
		attemptTimeout: attemptTimeout,
		bufSize:        defaultBufSize,
	}
}

// Transfer writes the body of url to path. Missing parent directories are
// created first; failing that returns an error wrapping ErrSetup. Failing
// to create the file itself is an ordinary, retryable error. The file is
// truncated before the first byte
// arrives, so a failed attempt leaves a partial file that the next
// verification rejects. Every chunk written is reported to tr.
func (x *Executor) Transfer(ctx context.Context, url, path string, tr Tracker) error {
	if tr == nil {
		tr = nopTracker{}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrSetup, dir, err)
	}

	tr.SetPosition(0)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			x.logger.Error("defer closing file", "path", path, "error", err)
		}
	}()

	if x.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.attemptTimeout)
		defer cancel()
	}

	body, size, err := x.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() {
		if err := body.Close(); err != nil {
			x.logger.Debug("closing response body", "error", err)
		}
	}()

	pw := &progressWriter{w: file, tr: tr}

	n, err := io.CopyBuffer(pw, &contextReader{ctx: ctx, r: body}, make([]byte, x.bufSize))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}

		return fmt.Errorf("copying body: %w", err)
	}

	if size >= 0 && n != size {
		return &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", size, n),
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}

	return nil
}
