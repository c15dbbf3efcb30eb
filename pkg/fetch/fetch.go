// Package fetch provides the shared HTTP fetcher every pipeline stage
// routes through. A bounded admission gate plus an optional rate budget
// form the single outbound chokepoint: however many stages fan out
// concurrently, aggregate in-flight load stays capped.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/jshound/jshound/pkg/browser"
	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/duration"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/httpclient"
	"github.com/jshound/jshound/pkg/iohelper"
	"github.com/jshound/jshound/pkg/ratelimit"
	"github.com/jshound/jshound/pkg/retry"
	"github.com/jshound/jshound/pkg/tlsprofile"
)

// Config configures the shared fetcher.
type Config struct {
	// MaxConcurrent caps in-flight requests across all callers (default: 10)
	MaxConcurrent int

	// RateLimit is the global request budget in req/s (0 = unlimited)
	RateLimit int

	// PerHostRate is a per-host request budget in req/s (0 = unlimited)
	PerHostRate int

	// Timeout is the default per-request deadline (default: 30s)
	Timeout time.Duration

	// Retries retries timeouts, connect failures, and 429/5xx responses
	// with exponential backoff (default: 0)
	Retries int

	// Proxy routes requests through an HTTP/HTTPS/SOCKS5 proxy URL.
	// Ignored when MimicTLS is set; the mimic client dials directly.
	Proxy string

	// InsecureSkipVerify skips TLS certificate verification (default: true).
	// Discovered subdomains frequently present expired, self-signed, or
	// mismatched certificates; failing closed would hide exactly the
	// hosts worth scanning.
	InsecureSkipVerify bool

	// FollowRedirects follows redirect chains up to MaxRedirects
	FollowRedirects bool

	// MaxRedirects caps the redirect chain length when following
	MaxRedirects int

	// MimicTLS sends browser-accurate ClientHello fingerprints instead
	// of Go's native handshake, for targets behind fingerprint-filtering
	// CDN edges. Slower: connections are single-use.
	MimicTLS bool
}

// DefaultConfig returns the standard scan budget.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:      defaults.ConcurrencyMedium,
		Timeout:            duration.HTTPDownload,
		Retries:            defaults.RetryLow,
		InsecureSkipVerify: true,
		FollowRedirects:    true,
		MaxRedirects:       defaults.MaxRedirects,
	}
}

// Response is a completed fetch.
type Response struct {
	Body       []byte
	StatusCode int
	FinalURL   string // URL after redirects, for relative reference resolution
	Header     http.Header
}

// Options adjust a single request. A nil Options uses fetcher defaults.
type Options struct {
	// Headers are set after the rotated browser profile headers, so
	// explicit values win over the fingerprint ones.
	Headers http.Header

	// Timeout overrides Config.Timeout for this request.
	Timeout time.Duration

	// MaxBodySize caps the response body read (default: 1MB). Callers
	// pick the iohelper tier matching what they expect back.
	MaxBodySize int64
}

// Stats is a point-in-time snapshot of fetcher activity. Requests
// counts issued HTTP attempts including retries; Successes and
// Failures count completed Get calls.
type Stats struct {
	Requests  int64 `json:"requests"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
}

// Fetcher issues GET requests under a shared concurrency and rate
// budget. One Fetcher is meant to be shared by every stage of a scan;
// it is safe for concurrent use.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.Limiter // global budget, nil when RateLimit is 0
	hostLim *ratelimit.Limiter // per-host budget, nil when PerHostRate is 0
	sem     chan struct{}
	stats   Stats
}

// New creates a fetcher. Zero-valued numeric fields fall back to the
// defaults; boolean fields are taken as configured, so start from
// DefaultConfig when in doubt.
func New(cfg Config) *Fetcher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaults.ConcurrencyMedium
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = duration.HTTPDownload
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaults.MaxRedirects
	}

	f := &Fetcher{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxConcurrent),
	}

	if cfg.RateLimit > 0 {
		f.limiter = ratelimit.New(&ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit,
			Burst:             cfg.RateLimit / 5, // 20% burst capacity
		})
	}
	if cfg.PerHostRate > 0 {
		f.hostLim = ratelimit.New(&ratelimit.Config{
			RequestsPerSecond: cfg.PerHostRate,
			PerHost:           true,
		})
	}

	if cfg.MimicTLS {
		f.client = mimicClient(cfg)
	} else {
		f.client = httpclient.New(httpclient.Config{
			// Backstop only; effective deadlines ride each request context.
			Timeout:            duration.HTTPOSINT,
			Proxy:              cfg.Proxy,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			DNSCache:           httpclient.GetDNSCache(),
			FollowRedirects:    cfg.FollowRedirects,
			MaxRedirects:       cfg.MaxRedirects,
		})
	}

	return f
}

// mimicClient builds the uTLS-handshake client and reapplies the
// fetcher's redirect policy, which CreateClient does not know about.
func mimicClient(cfg Config) *http.Client {
	client := tlsprofile.CreateClient(&tlsprofile.Config{
		Timeout:    duration.HTTPOSINT,
		SkipVerify: cfg.InsecureSkipVerify,
	})
	maxRedirects := cfg.MaxRedirects
	if cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// Get fetches rawURL under the shared budgets: a concurrency slot is
// acquired first, then a rate token, then the request is issued. The
// slot is held across retries so the in-flight bound holds even while
// backing off. All failures come back as a *FetchError.
func (f *Fetcher) Get(ctx context.Context, rawURL string, opts *Options) (*Response, error) {
	if opts == nil {
		opts = &Options{}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		atomic.AddInt64(&f.stats.Failures, 1)
		return nil, &FetchError{URL: rawURL, Kind: KindConnect, Err: fmt.Errorf("%w: %w", finding.ErrTargetUnreachable, err)}
	}

	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		atomic.AddInt64(&f.stats.Failures, 1)
		return nil, classify(rawURL, ctx.Err())
	}
	defer func() { <-f.sem }()

	timeout := f.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	maxBody := opts.MaxBodySize
	if maxBody <= 0 {
		maxBody = iohelper.DefaultMaxBodySize
	}

	rcfg := retry.Config{
		MaxAttempts: f.cfg.Retries + 1,
		InitDelay:   duration.RetryFast,
		MaxDelay:    duration.VerySlowResponse,
		Strategy:    retry.Exponential,
		Jitter:      true,
	}

	var out *Response
	attempt := func() error {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return retry.Stop(classify(rawURL, err))
			}
		}
		if f.hostLim != nil {
			if err := f.hostLim.WaitForHost(ctx, u.Hostname()); err != nil {
				return retry.Stop(classify(rawURL, err))
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return retry.Stop(&FetchError{URL: rawURL, Kind: KindConnect, Err: err})
		}
		f.applyHeaders(req, opts.Headers)

		atomic.AddInt64(&f.stats.Requests, 1)
		resp, err := f.client.Do(req)
		if err != nil {
			fe := classify(rawURL, err)
			if fe.Kind == KindCanceled {
				return retry.Stop(fe)
			}
			f.noteError()
			return fe // timeouts and connect failures are worth another attempt
		}
		defer iohelper.DrainAndClose(resp.Body)

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			f.noteError()
			statusErr := statusError(rawURL, resp.StatusCode)
			if hint := httpclient.RetryAfterHint(resp); hint > 0 {
				return retry.After(statusErr, hint)
			}
			return statusErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return retry.Stop(statusError(rawURL, resp.StatusCode))
		}

		body, err := iohelper.ReadBody(resp.Body, maxBody)
		if err != nil {
			return bodyError(rawURL, err)
		}

		finalURL := rawURL
		if resp.Request != nil && resp.Request.URL != nil {
			finalURL = resp.Request.URL.String()
		}
		out = &Response{
			Body:       body,
			StatusCode: resp.StatusCode,
			FinalURL:   finalURL,
			Header:     resp.Header.Clone(),
		}
		f.noteSuccess()
		return nil
	}

	if err := retry.Do(ctx, rcfg, attempt); err != nil {
		atomic.AddInt64(&f.stats.Failures, 1)
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		// Context died between attempts; surface it typed like the rest.
		return nil, classify(rawURL, err)
	}

	atomic.AddInt64(&f.stats.Successes, 1)
	return out, nil
}

// applyHeaders layers a rotated browser profile under any per-request
// overrides. With MimicTLS the transport applies its own paired
// identity so the TLS and HTTP fingerprints agree; rotation here would
// fight it.
func (f *Fetcher) applyHeaders(req *http.Request, overrides http.Header) {
	if !f.cfg.MimicTLS {
		browser.Random().Apply(req.Header)
	}
	for key, vals := range overrides {
		req.Header.Del(key)
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}
}

// noteError feeds the adaptive rate limiter, a no-op unless slowdown
// is configured.
func (f *Fetcher) noteError() {
	if f.limiter != nil {
		f.limiter.OnError()
	}
}

func (f *Fetcher) noteSuccess() {
	if f.limiter != nil {
		f.limiter.OnSuccess()
	}
}

// Stats returns a snapshot of the request counters.
func (f *Fetcher) Stats() Stats {
	return Stats{
		Requests:  atomic.LoadInt64(&f.stats.Requests),
		Successes: atomic.LoadInt64(&f.stats.Successes),
		Failures:  atomic.LoadInt64(&f.stats.Failures),
	}
}
