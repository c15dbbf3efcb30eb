// Package hosterrors remembers hosts whose requests keep failing so
// later work can skip them. Enumeration regularly surfaces subdomains
// that resolve nowhere; without a shared verdict every asset on a dead
// host would burn the full timeout and retry budget again.
package hosterrors

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxErrors is the number of consecutive network failures
	// after which a host is treated as unreachable.
	DefaultMaxErrors = 5

	// DefaultExpiry is how long an unreachable verdict holds before
	// the host gets probed again.
	DefaultExpiry = 2 * time.Minute
)

// ErrHostDown marks work skipped because its host is cached as
// unreachable.
var ErrHostDown = errors.New("host marked unreachable")

// hostState tracks consecutive failures for a single host. markedAt is
// zero until the threshold is crossed.
type hostState struct {
	mu       sync.Mutex
	count    int
	markedAt time.Time
}

// Cache counts consecutive network failures per host and reports hosts
// that crossed the threshold. Safe for concurrent use.
type Cache struct {
	hosts     sync.Map // normalized host -> *hostState
	maxErrors int
	expiry    time.Duration
}

// NewCache returns a cache that marks a host unreachable after
// maxErrors consecutive failures and drops the verdict after expiry.
// Values <= 0 fall back to the defaults.
func NewCache(maxErrors int, expiry time.Duration) *Cache {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Cache{maxErrors: maxErrors, expiry: expiry}
}

// MarkError records one failure for host and reports whether the host
// is now considered unreachable. host may be a bare name, host:port,
// or a full URL.
func (c *Cache) MarkError(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	v, _ := c.hosts.LoadOrStore(host, &hostState{})
	st := v.(*hostState)

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.markedAt.IsZero() && time.Since(st.markedAt) > c.expiry {
		st.count = 0
		st.markedAt = time.Time{}
	}
	st.count++
	if st.count >= c.maxErrors && st.markedAt.IsZero() {
		st.markedAt = time.Now()
	}
	return !st.markedAt.IsZero()
}

// Check reports whether host is currently considered unreachable. An
// expired verdict is cleared so the host gets another chance.
func (c *Cache) Check(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	v, ok := c.hosts.Load(host)
	if !ok {
		return false
	}
	st := v.(*hostState)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.markedAt.IsZero() {
		return false
	}
	if time.Since(st.markedAt) > c.expiry {
		st.count = 0
		st.markedAt = time.Time{}
		return false
	}
	return true
}

// Clear forgets everything recorded about host. Call it after a
// request succeeds so a recovering host is not punished for old
// failures.
func (c *Cache) Clear(host string) {
	c.hosts.Delete(normalizeHost(host))
}

// Size returns the number of hosts with recorded failures.
func (c *Cache) Size() int {
	n := 0
	c.hosts.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// normalizeHost reduces a host, host:port, or URL to the bare
// lowercase hostname so every spelling of a host shares one failure
// count.
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil && u.Host != "" {
			host = u.Host
		}
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}
