package httpclient

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// DNS caching for scan traffic. A run resolves the same hosts over and
// over (probe, page fetch, then every asset on the host), and
// enumeration output is full of names that no longer resolve. Caching
// both outcomes keeps the resolver out of the hot path; negative
// entries expire quickly so a host that comes back mid-scan gets
// re-probed instead of staying written off.

const (
	// dnsTTL is how long successful lookups stay cached.
	dnsTTL = 5 * time.Minute

	// dnsNegativeTTL is how long failed lookups stay cached.
	dnsNegativeTTL = 30 * time.Second
)

// DNSCache memoizes hostname lookups, including failures. Safe for
// concurrent use; refreshes for the same host are serialized so a
// burst of requests to a new host costs one resolver query.
type DNSCache struct {
	entries     sync.Map // hostname -> *dnsEntry
	resolver    *net.Resolver
	ttl         time.Duration
	negativeTTL time.Duration
	done        chan struct{}
}

type dnsEntry struct {
	mu      sync.RWMutex
	ips     []net.IP
	err     error
	expires time.Time
}

var (
	sharedDNS     *DNSCache
	sharedDNSOnce sync.Once
)

// GetDNSCache returns the process-wide DNS cache the shared fetcher
// plugs into its clients.
func GetDNSCache() *DNSCache {
	sharedDNSOnce.Do(func() {
		sharedDNS = NewDNSCache(dnsTTL, dnsNegativeTTL)
	})
	return sharedDNS
}

// NewDNSCache creates a cache holding successful lookups for ttl and
// failed ones for negativeTTL. A background sweeper drops expired
// entries every 2*ttl; Close stops it.
func NewDNSCache(ttl, negativeTTL time.Duration) *DNSCache {
	c := &DNSCache{
		// The Go resolver behaves the same on every platform.
		resolver:    &net.Resolver{PreferGo: true},
		ttl:         ttl,
		negativeTTL: negativeTTL,
		done:        make(chan struct{}),
	}
	go c.sweepLoop(2 * ttl)
	return c
}

// Close stops the background sweeper. Safe to call more than once.
func (c *DNSCache) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (c *DNSCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *DNSCache) sweep(now time.Time) {
	c.entries.Range(func(k, v any) bool {
		e := v.(*dnsEntry)
		e.mu.RLock()
		dead := now.After(e.expires)
		e.mu.RUnlock()
		if dead {
			c.entries.Delete(k)
		}
		return true
	})
}

// LookupHost returns the addresses for host, from cache when the
// entry is still fresh. Cached failures are returned as failures
// until their shorter TTL runs out.
func (c *DNSCache) LookupHost(ctx context.Context, host string) ([]net.IP, error) {
	e := c.entry(host)

	e.mu.RLock()
	if time.Now().Before(e.expires) {
		ips, err := e.ips, e.err
		e.mu.RUnlock()
		return ips, err
	}
	e.mu.RUnlock()

	return c.refresh(ctx, host, e)
}

func (c *DNSCache) entry(host string) *dnsEntry {
	if v, ok := c.entries.Load(host); ok {
		return v.(*dnsEntry)
	}
	v, _ := c.entries.LoadOrStore(host, &dnsEntry{})
	return v.(*dnsEntry)
}

func (c *DNSCache) refresh(ctx context.Context, host string, e *dnsEntry) ([]net.IP, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Another goroutine may have refreshed while we waited on the lock.
	if time.Now().Before(e.expires) {
		return e.ips, e.err
	}

	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		// A canceled lookup says nothing about the name. Leave the
		// entry unexpired-free so the next caller retries DNS instead
		// of inheriting a stale context error.
		if ctx.Err() != nil {
			return nil, err
		}
		e.ips, e.err = nil, err
		e.expires = time.Now().Add(c.negativeTTL)
		return nil, err
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil {
			ips = append(ips, ip)
		}
	}
	if len(ips) == 0 {
		err := fmt.Errorf("dnscache: %s resolved to no usable address", host)
		e.ips, e.err = nil, err
		e.expires = time.Now().Add(c.negativeTTL)
		return nil, err
	}

	e.ips, e.err = ips, nil
	e.expires = time.Now().Add(c.ttl)
	return ips, nil
}

// Invalidate drops the entry for host. Called after every cached
// address failed to connect, in case DNS moved under us.
func (c *DNSCache) Invalidate(host string) {
	c.entries.Delete(host)
}

// Clear drops every entry.
func (c *DNSCache) Clear() {
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		return true
	})
}

// Size returns the number of cached hosts, expired or not.
func (c *DNSCache) Size() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CachingDialer is a net dialer that resolves through a DNSCache.
// Plugged in as http.Transport.DialContext.
type CachingDialer struct {
	cache *DNSCache
	net   *net.Dialer
}

// NewCachingDialer wraps a standard dialer with cached resolution.
func NewCachingDialer(cache *DNSCache, timeout time.Duration) *CachingDialer {
	return &CachingDialer{
		cache: cache,
		net: &net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		},
	}
}

// DialContext resolves the host through the cache and tries each
// address until one connects. IP literals and unparseable addresses
// bypass the cache and dial directly.
func (d *CachingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return d.net.DialContext(ctx, network, address)
	}
	if ip := net.ParseIP(host); ip != nil {
		return d.net.DialContext(ctx, network, address)
	}

	ips, err := d.cache.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, ip := range ips {
		conn, err := d.net.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}

	// Every address failed; the record may be stale.
	d.cache.Invalidate(host)
	if lastErr == nil {
		lastErr = fmt.Errorf("dnscache: no address to dial for %s", host)
	}
	return nil, lastErr
}
