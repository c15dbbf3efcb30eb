package httpclient

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// seed installs a resolved entry without touching the resolver.
func (c *DNSCache) seed(host string, ips []net.IP, err error, ttl time.Duration) {
	c.entries.Store(host, &dnsEntry{
		ips:     ips,
		err:     err,
		expires: time.Now().Add(ttl),
	})
}

func TestDNSCacheHitSkipsResolver(t *testing.T) {
	t.Parallel()

	cache := NewDNSCache(time.Minute, time.Second)
	defer cache.Close()

	want := []net.IP{net.ParseIP("192.0.2.10")}
	// The name cannot resolve for real, so a non-error result proves
	// the cached entry answered.
	cache.seed("seeded.invalid", want, nil, time.Minute)

	ips, err := cache.LookupHost(context.Background(), "seeded.invalid")
	if err != nil {
		t.Fatalf("LookupHost: %v", err)
	}
	if len(ips) != 1 || !ips[0].Equal(want[0]) {
		t.Errorf("ips = %v, want %v", ips, want)
	}
}

func TestDNSCacheNegativeEntryIsServed(t *testing.T) {
	t.Parallel()

	cache := NewDNSCache(time.Minute, time.Minute)
	defer cache.Close()

	sentinel := errors.New("no such host")
	cache.seed("gone.invalid", nil, sentinel, time.Minute)

	_, err := cache.LookupHost(context.Background(), "gone.invalid")
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want the cached failure", err)
	}
}

func TestDNSCacheFailureIsCachedWithNegativeTTL(t *testing.T) {
	t.Parallel()

	cache := NewDNSCache(time.Minute, time.Minute)
	defer cache.Close()

	// .invalid is reserved (RFC 2606); resolution must fail.
	if _, err := cache.LookupHost(context.Background(), "definitely-gone.invalid"); err == nil {
		t.Skip("resolver unexpectedly answered for .invalid")
	}

	v, ok := cache.entries.Load("definitely-gone.invalid")
	if !ok {
		t.Fatal("failed lookup left no cache entry")
	}
	e := v.(*dnsEntry)
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.err == nil {
		t.Error("entry carries no error")
	}
	if !e.expires.After(time.Now()) {
		t.Error("negative entry already expired")
	}
	if e.expires.After(time.Now().Add(2 * time.Minute)) {
		t.Error("negative entry got the long TTL")
	}
}

func TestDNSCacheCanceledLookupIsNotCached(t *testing.T) {
	t.Parallel()

	cache := NewDNSCache(time.Minute, time.Minute)
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cache.LookupHost(ctx, "whatever.invalid"); err == nil {
		t.Fatal("lookup under canceled context succeeded")
	}

	if v, ok := cache.entries.Load("whatever.invalid"); ok {
		e := v.(*dnsEntry)
		e.mu.RLock()
		defer e.mu.RUnlock()
		if e.err != nil && e.expires.After(time.Now()) {
			t.Error("context error was cached as a negative entry")
		}
	}
}

func TestDNSCacheInvalidateAndClear(t *testing.T) {
	t.Parallel()

	cache := NewDNSCache(time.Minute, time.Minute)
	defer cache.Close()

	cache.seed("a.example.com", []net.IP{net.ParseIP("192.0.2.1")}, nil, time.Minute)
	cache.seed("b.example.com", []net.IP{net.ParseIP("192.0.2.2")}, nil, time.Minute)
	if got := cache.Size(); got != 2 {
		t.Fatalf("Size = %d, want 2", got)
	}

	cache.Invalidate("a.example.com")
	if got := cache.Size(); got != 1 {
		t.Errorf("Size after Invalidate = %d, want 1", got)
	}

	cache.Clear()
	if got := cache.Size(); got != 0 {
		t.Errorf("Size after Clear = %d, want 0", got)
	}
}

func TestDNSCacheSweepDropsExpired(t *testing.T) {
	t.Parallel()

	cache := NewDNSCache(time.Minute, time.Minute)
	defer cache.Close()

	cache.seed("fresh.example.com", []net.IP{net.ParseIP("192.0.2.1")}, nil, time.Minute)
	cache.seed("stale.example.com", []net.IP{net.ParseIP("192.0.2.2")}, nil, -time.Second)

	cache.sweep(time.Now())

	if _, ok := cache.entries.Load("stale.example.com"); ok {
		t.Error("sweep kept the expired entry")
	}
	if _, ok := cache.entries.Load("fresh.example.com"); !ok {
		t.Error("sweep dropped the fresh entry")
	}
}

func TestDNSCacheCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	cache := NewDNSCache(time.Minute, time.Minute)
	cache.Close()
	cache.Close()
}

func TestGetDNSCacheIsSingleton(t *testing.T) {
	t.Parallel()

	if GetDNSCache() != GetDNSCache() {
		t.Error("GetDNSCache returned distinct caches")
	}
}

func TestCachingDialerUsesCachedAddress(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	cache := NewDNSCache(time.Minute, time.Minute)
	defer cache.Close()
	cache.seed("listener.invalid", []net.IP{net.ParseIP("127.0.0.1")}, nil, time.Minute)

	d := NewCachingDialer(cache, time.Second)
	conn, err := d.DialContext(context.Background(), "tcp", net.JoinHostPort("listener.invalid", port))
	if err != nil {
		t.Fatalf("DialContext via cached name: %v", err)
	}
	conn.Close()
}

func TestCachingDialerIPLiteralBypassesCache(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	cache := NewDNSCache(time.Minute, time.Minute)
	defer cache.Close()

	d := NewCachingDialer(cache, time.Second)
	conn, err := d.DialContext(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("DialContext to IP literal: %v", err)
	}
	conn.Close()

	if got := cache.Size(); got != 0 {
		t.Errorf("IP literal dial populated the cache: %d entries", got)
	}
}
