// Package testutil provides fault injection helpers for tests that
// need an output sink to fail on purpose.
package testutil

import "errors"

// ErrFault is the sentinel error every injected failure returns.
var ErrFault = errors.New("injected fault")

// FailingWriter fails once more than Limit bytes have been written.
// The write crossing the limit is partial, matching how a full disk
// behaves. A zero Limit fails on the first write.
type FailingWriter struct {
	written int
	Limit   int
}

func (w *FailingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.Limit {
		remaining := w.Limit - w.written
		if remaining > 0 {
			w.written += remaining
			return remaining, ErrFault
		}
		return 0, ErrFault
	}
	w.written += len(p)
	return len(p), nil
}

// FailingWriteCloser accepts every write and fails on Close, the
// shape of a buffered file whose final flush hits a full disk. The
// zero value is ready to use.
type FailingWriteCloser struct {
	buf []byte
}

func (w *FailingWriteCloser) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *FailingWriteCloser) Close() error { return ErrFault }

// Bytes returns everything written so far.
func (w *FailingWriteCloser) Bytes() []byte { return w.buf }
