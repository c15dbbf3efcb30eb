// Package httpclient provides a shared, optimized HTTP client factory.
// Every network stage (probing, page discovery, asset download, OSINT
// queries) builds its clients here so connection pools, DNS caching,
// proxies, and request middleware are configured in one place.
package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jshound/jshound/pkg/defaults"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: 30s)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification (default: true).
	// Discovered subdomains frequently present expired, self-signed, or
	// mismatched certificates; skipping verification keeps them scannable.
	InsecureSkipVerify bool

	// Proxy is the HTTP/HTTPS/SOCKS proxy URL (optional)
	Proxy string

	// MaxIdleConns is the maximum number of idle connections across all hosts (default: 100)
	MaxIdleConns int

	// MaxConnsPerHost is the maximum connections per host (default: 25)
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections stay in pool (default: 90s)
	IdleConnTimeout time.Duration

	// DisableKeepAlives disables HTTP keep-alives if true (default: false)
	DisableKeepAlives bool

	// DialTimeout is the timeout for establishing connections (default: 10s)
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the timeout for TLS handshake (default: 10s)
	TLSHandshakeTimeout time.Duration

	// TLSConfig replaces the generated TLS client config entirely.
	// InsecureSkipVerify and CipherSuites are still applied on top.
	TLSConfig *tls.Config

	// CipherSuites restricts the TLS cipher suites offered (optional)
	CipherSuites []uint16

	// ForceHTTPVersion pins the protocol: "1.1" disables HTTP/2, "2"
	// forces the HTTP/2 attempt. Empty negotiates normally.
	ForceHTTPVersion string

	// CustomResolvers are DNS servers ("8.8.8.8" or "8.8.8.8:53") used
	// instead of the system resolver (optional)
	CustomResolvers []string

	// DNSCache, when set, routes hostname resolution through the shared
	// DNS cache. Worth enabling for scans that touch many subdomains.
	DNSCache *DNSCache

	// UserAgent is a fixed User-Agent set on every request (optional)
	UserAgent string

	// RandomUserAgent rotates through browser User-Agents per request
	RandomUserAgent bool

	// AuthHeaders are extra headers (API keys, bearer tokens) added to
	// every request. Never carried across cross-origin redirects.
	AuthHeaders http.Header

	// RetryCount retries transport errors and 429/503 responses (default: 0)
	RetryCount int

	// RetryDelay is the pause between retries (default: 1s when retrying)
	RetryDelay time.Duration

	// FollowRedirects follows redirect chains instead of returning the
	// redirect response (default: false)
	FollowRedirects bool

	// MaxRedirects caps the redirect chain length when following
	MaxRedirects int
}

// DefaultConfig returns sensible defaults tuned for scanning many hosts
// with connection reuse.
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		InsecureSkipVerify:  true, // scan targets rarely have clean certs
		MaxIdleConns:        100,
		MaxConnsPerHost:     25,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxRedirects:        defaults.MaxRedirects,
	}
}

var (
	defaultClient *http.Client
	defaultOnce   sync.Once
)

// Default returns a shared, pre-configured HTTP client.
// This client is safe for concurrent use and employs connection pooling.
// All packages should prefer Default() over creating their own clients.
//
// The default client:
//   - Uses connection pooling (100 idle, 25 per host)
//   - Has 30s timeout
//   - Skips TLS verification (scan targets rarely have clean certs)
//   - Does NOT follow redirects (returns http.ErrUseLastResponse)
//   - Enables HTTP/2
func Default() *http.Client {
	defaultOnce.Do(func() {
		defaultClient = New(DefaultConfig())
	})
	return defaultClient
}

// TransportWrapper decorates the transport of every client built by New.
// Used to inject cross-cutting concerns such as request metrics.
type TransportWrapper func(http.RoundTripper) http.RoundTripper

var (
	wrapperMu        sync.RWMutex
	transportWrapper TransportWrapper
)

// RegisterTransportWrapper installs w as the global transport decorator.
// Clients created after registration route requests through w. Passing
// nil removes the wrapper.
func RegisterTransportWrapper(w TransportWrapper) {
	wrapperMu.Lock()
	transportWrapper = w
	wrapperMu.Unlock()
}

// New creates a new HTTP client with the given configuration.
// Use this when you need a client with non-default settings.
// For most cases, prefer Default() for connection reuse benefits.
func New(cfg Config) *http.Client {
	// Apply sensible defaults for zero values
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = 25
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.TLSHandshakeTimeout == 0 {
		cfg.TLSHandshakeTimeout = 10 * time.Second
	}
	if cfg.RetryCount > 0 && cfg.RetryDelay == 0 {
		cfg.RetryDelay = 1 * time.Second
	}
	if cfg.FollowRedirects && cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaults.MaxRedirects
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	if resolver := newResolver(cfg.CustomResolvers); resolver != nil {
		dialer.Resolver = resolver
	}

	// TLS configuration
	tlsCfg := cfg.TLSConfig.Clone()
	if tlsCfg == nil {
		tlsCfg = &tls.Config{}
	}
	if cfg.InsecureSkipVerify {
		tlsCfg.InsecureSkipVerify = true
	}
	if len(cfg.CipherSuites) > 0 {
		tlsCfg.CipherSuites = cfg.CipherSuites
	}

	transport := &http.Transport{
		// Connection pooling - key for performance
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DisableKeepAlives:   cfg.DisableKeepAlives,

		// Performance tuning
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,

		// Dialer with timeouts
		DialContext: dialer.DialContext,

		TLSClientConfig: tlsCfg,
	}

	switch cfg.ForceHTTPVersion {
	case "1", "1.1":
		// A non-nil empty TLSNextProto map disables HTTP/2 negotiation.
		transport.ForceAttemptHTTP2 = false
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	case "2", "2.0":
		transport.ForceAttemptHTTP2 = true
	}

	// DNS caching (optional)
	if cfg.DNSCache != nil {
		transport.DialContext = NewCachingDialer(cfg.DNSCache, cfg.DialTimeout).DialContext
	}

	// Proxy support (optional). Malformed proxy URLs are ignored so a bad
	// flag degrades to a direct connection rather than a dead client.
	if cfg.Proxy != "" {
		if pc, err := ParseProxyURL(cfg.Proxy); err == nil && pc != nil {
			if pc.IsSOCKS {
				if socksDialer, derr := CreateSOCKSDialer(pc, cfg.DialTimeout); derr == nil {
					transport.DialContext = socksDialer.DialContext
				}
			} else {
				transport.Proxy = http.ProxyURL(pc.URL)
			}
		}
	}

	var rt http.RoundTripper = transport

	wrapperMu.RLock()
	wrapper := transportWrapper
	wrapperMu.RUnlock()
	if wrapper != nil {
		rt = wrapper(rt)
	}

	if needsMiddleware(cfg) {
		rt = &middlewareTransport{
			base:        rt,
			userAgent:   cfg.UserAgent,
			randomUA:    cfg.RandomUserAgent,
			authHeaders: cfg.AuthHeaders,
			retryCount:  cfg.RetryCount,
			retryDelay:  cfg.RetryDelay,
		}
	}

	var checkRedirect func(*http.Request, []*http.Request) error
	if cfg.FollowRedirects {
		checkRedirect = followRedirectPolicy(cfg.MaxRedirects, cfg.AuthHeaders)
	} else {
		checkRedirect = redirectPolicyWithAuthStrip(cfg.AuthHeaders)
	}

	return &http.Client{
		Transport:     rt,
		Timeout:       cfg.Timeout,
		CheckRedirect: checkRedirect,
	}
}

// newResolver builds a resolver that queries the given DNS servers in
// round-robin order. Returns nil when no usable servers are configured.
func newResolver(servers []string) *net.Resolver {
	addrs := make([]string, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !containsPort(s) {
			// Bracketed IPv6 without a port needs the brackets stripped
			// before JoinHostPort re-adds them.
			if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
				s = s[1 : len(s)-1]
			}
			s = net.JoinHostPort(s, "53")
		}
		addrs = append(addrs, s)
	}
	if len(addrs) == 0 {
		return nil
	}

	var next atomic.Uint32
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := &net.Dialer{Timeout: 3 * time.Second}
			addr := addrs[int(next.Add(1))%len(addrs)]
			return d.DialContext(ctx, network, addr)
		},
	}
}

// containsPort reports whether addr carries an explicit port. Bare IPv6
// addresses contain colons but no port; bracket notation marks the port
// with "]:".
func containsPort(addr string) bool {
	if strings.HasPrefix(addr, "[") {
		return strings.Contains(addr, "]:")
	}
	if strings.Count(addr, ":") > 1 {
		return false // bare IPv6
	}
	return strings.Contains(addr, ":")
}
