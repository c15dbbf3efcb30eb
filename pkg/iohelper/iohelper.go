// Package iohelper bounds reads on HTTP response bodies. Every body in
// the pipeline comes off an untrusted host, so nothing reads to EOF
// without a ceiling.
package iohelper

import (
	"io"

	"github.com/jshound/jshound/pkg/defaults"
)

// Body ceilings by response kind.
const (
	// SmallMaxBodySize covers API error payloads (8KB)
	SmallMaxBodySize int64 = 8 * 1024

	// MediumMaxBodySize covers typical OSINT API responses (100KB)
	MediumMaxBodySize int64 = 100 * 1024

	// DefaultMaxBodySize covers general responses (1MB)
	DefaultMaxBodySize int64 = 1024 * 1024

	// PageMaxBodySize covers HTML parsed for script references (5MB)
	PageMaxBodySize int64 = defaults.MaxPageSize

	// AssetMaxBodySize covers downloaded JavaScript (10MB)
	AssetMaxBodySize int64 = defaults.MaxAssetSize
)

// ReadBody reads r up to maxSize bytes. A nil reader yields an empty
// slice, so callers can pass resp.Body without a nil check.
//
//	body, err := iohelper.ReadBody(resp.Body, iohelper.PageMaxBodySize)
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose consumes what is left of r and closes it when it is a
// ReadCloser. An abandoned body with unread bytes kills connection
// reuse; the drain is capped so a hostile stream cannot hold us. The
// nil error return makes it usable directly in defer.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, defaults.BufferLarge))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
