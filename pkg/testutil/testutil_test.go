package testutil

import (
	"errors"
	"testing"
)

func TestFailingWriter_PartialWrite(t *testing.T) {
	w := &FailingWriter{Limit: 5}

	n, err := w.Write([]byte("abc"))
	if n != 3 || err != nil {
		t.Fatalf("first write = (%d, %v), want (3, nil)", n, err)
	}

	// Crossing the limit writes the remaining capacity, then fails.
	n, err = w.Write([]byte("defg"))
	if n != 2 {
		t.Errorf("crossing write n = %d, want 2", n)
	}
	if !errors.Is(err, ErrFault) {
		t.Errorf("crossing write err = %v, want ErrFault", err)
	}

	n, err = w.Write([]byte("h"))
	if n != 0 || !errors.Is(err, ErrFault) {
		t.Errorf("exhausted write = (%d, %v), want (0, ErrFault)", n, err)
	}
}

func TestFailingWriter_ZeroLimit(t *testing.T) {
	w := &FailingWriter{}

	if _, err := w.Write([]byte("x")); !errors.Is(err, ErrFault) {
		t.Errorf("zero-limit write err = %v, want ErrFault", err)
	}
}

func TestFailingWriteCloser(t *testing.T) {
	w := &FailingWriteCloser{}

	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if string(w.Bytes()) != "hello" {
		t.Errorf("buffered %q, want %q", w.Bytes(), "hello")
	}
	if !errors.Is(w.Close(), ErrFault) {
		t.Error("Close should return ErrFault")
	}
}
