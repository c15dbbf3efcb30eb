package httpclient

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/jshound/jshound/pkg/browser"
	"github.com/jshound/jshound/pkg/iohelper"
	"github.com/jshound/jshound/pkg/retry"
)

// middlewareTransport wraps a base RoundTripper to add request-level
// middleware: user-agent rotation, auth headers, and retry logic.
//
// Features:
//   - Fixed or random User-Agent header per request
//   - Auth headers on every request (redirect policy keeps them on-origin)
//   - Retry on transport errors and HTTP 429/503 responses
type middlewareTransport struct {
	base        http.RoundTripper
	userAgent   string
	randomUA    bool
	authHeaders http.Header
	retryCount  int
	retryDelay  time.Duration
}

// retryableStatusCodes are HTTP status codes that trigger automatic retry.
// 429 = Too Many Requests (rate limiting), 503 = Service Unavailable
// (origin overloaded or CDN edge shedding load).
var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusServiceUnavailable: true,
}

// retryAfterCap bounds how long a server-suggested Retry-After header can
// stall a request. Anything longer is a polite way of saying "go away".
const retryAfterCap = 30 * time.Second

// defaultUserAgents is the rotation pool for RandomUserAgent, sourced
// from the browser fingerprint profiles.
var defaultUserAgents = browser.UserAgents()

// RandomUserAgent returns a randomly selected browser User-Agent string.
func RandomUserAgent() string {
	return defaultUserAgents[rand.IntN(len(defaultUserAgents))]
}

// RoundTrip implements http.RoundTripper with middleware.
func (m *middlewareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid mutating the caller's request.
	r := req.Clone(req.Context())

	// Set User-Agent.
	if m.randomUA {
		r.Header.Set("User-Agent", RandomUserAgent())
	} else if m.userAgent != "" {
		r.Header.Set("User-Agent", m.userAgent)
	}

	// Set auth headers.
	for key, vals := range m.authHeaders {
		for _, v := range vals {
			r.Header.Add(key, v)
		}
	}

	if m.retryCount <= 0 {
		return m.base.RoundTrip(r)
	}

	// A request body can only be resent when GetBody can replay it.
	replayable := r.Body == nil || r.GetBody != nil

	rcfg := retry.Config{
		MaxAttempts: m.retryCount + 1,
		InitDelay:   m.retryDelay,
		MaxDelay:    retryAfterCap,
		Strategy:    retry.Constant,
	}

	var resp *http.Response
	first := true
	err := retry.Do(r.Context(), rcfg, func() error {
		if !first {
			if resp != nil {
				// Drain the previous attempt's body so the connection
				// returns to the pool before we reuse it.
				iohelper.DrainAndClose(resp.Body)
				resp = nil
			}
			if r.GetBody != nil {
				body, bodyErr := r.GetBody()
				if bodyErr != nil {
					return retry.Stop(fmt.Errorf("httpclient: replay request body: %w", bodyErr))
				}
				r.Body = body
			}
		}
		first = false

		var rtErr error
		resp, rtErr = m.base.RoundTrip(r)
		if rtErr != nil {
			if !replayable {
				return retry.Stop(rtErr)
			}
			return rtErr
		}

		if retryableStatusCodes[resp.StatusCode] && replayable {
			statusErr := fmt.Errorf("httpclient: retryable status %d", resp.StatusCode)
			if hint := RetryAfterHint(resp); hint > 0 {
				return retry.After(statusErr, hint)
			}
			return statusErr
		}
		return nil
	})

	if err != nil {
		// Retries exhausted on a 429/503: hand the caller the actual
		// response rather than a synthetic error.
		if resp != nil {
			return resp, nil
		}
		return nil, err
	}
	return resp, nil
}

// RetryAfterHint parses a Retry-After header as either delay-seconds or
// an HTTP-date. Returns 0 when absent or unparseable.
func RetryAfterHint(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// needsMiddleware reports whether the config requires the middleware transport.
func needsMiddleware(cfg Config) bool {
	return cfg.UserAgent != "" ||
		cfg.RandomUserAgent ||
		len(cfg.AuthHeaders) > 0 ||
		cfg.RetryCount > 0
}

// redirectPolicyWithAuthStrip returns a CheckRedirect function that strips
// auth headers on cross-origin redirects to prevent credential leakage.
func redirectPolicyWithAuthStrip(authHeaders http.Header) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) == 0 {
			return http.ErrUseLastResponse
		}

		// Redirects are not followed by default; the strip below guards
		// callers that re-enable following on a client built here.
		originalHost := via[0].URL.Host
		if req.URL.Host != originalHost {
			for key := range authHeaders {
				req.Header.Del(key)
			}
		}

		return http.ErrUseLastResponse
	}
}

// followRedirectPolicy returns a CheckRedirect function that follows up
// to maxRedirects hops. When auth headers are configured, cross-origin
// redirects are not followed at all: the middleware re-applies those
// headers on every hop, so the only safe way to avoid leaking them to a
// foreign origin is to stop there and surface the redirect response.
func followRedirectPolicy(maxRedirects int, authHeaders http.Header) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		if len(authHeaders) > 0 && len(via) > 0 && req.URL.Host != via[0].URL.Host {
			return http.ErrUseLastResponse
		}
		return nil
	}
}
