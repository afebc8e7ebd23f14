package download

import (
	"context"
	"io"
)

// progressWriter is an io.Writer reporting every chunk it writes to a
// Tracker, after the write has landed.
type progressWriter struct {
	w       io.Writer
	tr      Tracker
	written int64
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	if n > 0 {
		pw.written += int64(n)
		pw.tr.Add(int64(n))
	}
	return n, err
}

// contextReader stops a copy loop once its context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
