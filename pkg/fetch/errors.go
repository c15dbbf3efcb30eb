package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/httpclient"
)

// Kind classifies a fetch failure.
type Kind string

const (
	// KindTimeout is a request or dial that exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindConnect is a DNS, dial, TLS, or proxy failure before any response.
	KindConnect Kind = "connect"
	// KindStatus is a non-2xx HTTP response.
	KindStatus Kind = "status"
	// KindBody is a failure while reading the response body.
	KindBody Kind = "body"
	// KindCanceled is a request abandoned because its context was canceled.
	KindCanceled Kind = "canceled"
)

// FetchError is the typed failure returned for every failed fetch.
// Callers decide whether a given failure is fatal to their item or
// skippable; a FetchError never aborts sibling fetches.
type FetchError struct {
	URL    string
	Status int   // HTTP status for KindStatus failures, 0 otherwise
	Kind   Kind
	Err    error // underlying cause, nil for plain status failures
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the failure kind carried by err, or "" when err is
// not a FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsTimeout reports whether err is a deadline-class fetch failure.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

// IsCanceled reports whether err is a canceled fetch.
func IsCanceled(err error) bool { return KindOf(err) == KindCanceled }

// StatusCode returns the HTTP status carried by err, or 0 when err is
// not a status-class FetchError.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}

// classify maps a transport-level error onto a FetchError, threading
// the shared sentinels through so errors.Is(err, finding.ErrTimeout)
// holds anywhere downstream.
func classify(url string, err error) *FetchError {
	switch {
	case errors.Is(err, context.Canceled):
		return &FetchError{URL: url, Kind: KindCanceled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{URL: url, Kind: KindTimeout, Err: fmt.Errorf("%w: %w", finding.ErrTimeout, err)}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{URL: url, Kind: KindTimeout, Err: fmt.Errorf("%w: %w", finding.ErrTimeout, err)}
	}

	return &FetchError{URL: url, Kind: KindConnect, Err: fmt.Errorf("%w: %w", finding.ErrTargetUnreachable, httpclient.Classify(err))}
}

// statusError builds the failure for a non-2xx response. A 429 carries
// the rate-limited sentinel so callers can recognize throttling without
// inspecting status codes.
func statusError(url string, code int) *FetchError {
	fe := &FetchError{URL: url, Status: code, Kind: KindStatus}
	if code == http.StatusTooManyRequests {
		fe.Err = finding.ErrRateLimited
	}
	return fe
}

func bodyError(url string, err error) *FetchError {
	return &FetchError{URL: url, Kind: KindBody, Err: err}
}
