// Package ratelimit spaces outbound request admissions in time. A
// Limiter hands out reservations: each admission is stamped with the
// earliest instant it may proceed and the caller sleeps exactly once,
// so acquisition is time-spaced rather than poll-and-retry.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/duration"
)

// Config controls how admissions are spaced.
type Config struct {
	// RequestsPerSecond is the sustained ceiling (0 = uncapped).
	RequestsPerSecond int

	// RequestsPerMinute is a secondary coarse ceiling (0 = off),
	// for APIs that meter by the minute.
	RequestsPerMinute int

	// Delay is a fixed pause added before every admission.
	Delay time.Duration

	// DelayMin/DelayMax randomize the pause instead, when both set.
	DelayMin time.Duration
	DelayMax time.Duration

	// PerHost keeps an independent budget per hostname so one slow
	// subdomain cannot starve the rest of the scan.
	PerHost bool

	// AdaptiveSlowdown grows the pause on errors and shrinks it back
	// on successes.
	AdaptiveSlowdown bool
	SlowdownFactor   float64 // pause multiplier per error (default 1.5)
	SlowdownMaxDelay time.Duration
	RecoveryRate     float64 // pause multiplier per success (default 0.9)

	// Burst is how many admissions may run ahead of the sustained rate.
	Burst int
}

// DefaultConfig returns the standard scan budget (50 req/s).
func DefaultConfig() *Config {
	return &Config{
		RequestsPerSecond: defaults.RateLimitMedium,
		SlowdownFactor:    1.5,
		SlowdownMaxDelay:  duration.VerySlowResponse,
		RecoveryRate:      0.9,
		Burst:             10,
	}
}

// bucket is a token bucket that may run a deficit: an admission is
// always granted immediately and stamped with the instant the deficit
// clears, so callers sleep once instead of polling for refills.
type bucket struct {
	rate  float64 // tokens per second
	cap   float64
	level float64
	stamp time.Time
}

func newBucket(rps, burst int) *bucket {
	if burst < 1 {
		burst = 1
	}
	return &bucket{
		rate:  float64(rps),
		cap:   float64(burst),
		level: float64(burst),
		stamp: time.Now(),
	}
}

// reserve commits one admission and returns how long the caller must
// wait before acting on it.
func (b *bucket) reserve(now time.Time) time.Duration {
	b.level += now.Sub(b.stamp).Seconds() * b.rate
	if b.level > b.cap {
		b.level = b.cap
	}
	b.stamp = now
	b.level--
	if b.level >= 0 {
		return 0
	}
	return time.Duration(-b.level / b.rate * float64(time.Second))
}

// admitLog enforces a per-minute ceiling by remembering recent
// admission stamps, including reserved future ones.
type admitLog struct {
	span   time.Duration
	max    int
	admits []time.Time
}

func newAdmitLog(max int, span time.Duration) *admitLog {
	return &admitLog{span: span, max: max}
}

// reserve records one admission and returns the wait until it fits
// inside the window.
func (a *admitLog) reserve(now time.Time) time.Duration {
	cut := now.Add(-a.span)
	keep := 0
	for keep < len(a.admits) && !a.admits[keep].After(cut) {
		keep++
	}
	a.admits = append(a.admits[:0], a.admits[keep:]...)

	at := now
	if len(a.admits) >= a.max {
		// Proceed once the max-th previous admission leaves the window.
		at = a.admits[len(a.admits)-a.max].Add(a.span)
	}
	a.admits = append(a.admits, at)
	return at.Sub(now)
}

// budget is the spacing state for one host (or the global scope).
type budget struct {
	bucket *bucket
	log    *admitLog
	pause  time.Duration // current adaptive pause
}

func newBudget(cfg *Config) *budget {
	b := &budget{pause: cfg.Delay}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.RequestsPerSecond / 10
		}
		b.bucket = newBucket(cfg.RequestsPerSecond, burst)
	}
	if cfg.RequestsPerMinute > 0 {
		b.log = newAdmitLog(cfg.RequestsPerMinute, time.Minute)
	}
	return b
}

// reserve stacks the bucket, window, and pause budgets into a single
// wait. Bucket and window run concurrently (the longer one binds);
// the pause is added on top because it spaces requests deliberately.
func (b *budget) reserve(cfg *Config, now time.Time) time.Duration {
	var wait time.Duration
	if b.bucket != nil {
		wait = b.bucket.reserve(now)
	}
	if b.log != nil {
		if w := b.log.reserve(now); w > wait {
			wait = w
		}
	}
	switch {
	case cfg.DelayMin > 0 && cfg.DelayMax > cfg.DelayMin:
		wait += cfg.DelayMin + rand.N(cfg.DelayMax-cfg.DelayMin)
	case b.pause > 0:
		wait += b.pause
	}
	return wait
}

// Limiter spaces request admissions according to its Config. Safe for
// concurrent use.
type Limiter struct {
	cfg    *Config
	mu     sync.Mutex
	global *budget
	hosts  map[string]*budget
	last   time.Time // stamp of the most recent admission
}

// New creates a limiter. A nil cfg gets DefaultConfig.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Limiter{cfg: cfg, global: newBudget(cfg)}
	if cfg.PerHost {
		l.hosts = make(map[string]*budget)
	}
	return l
}

// NewPerSecond creates a limiter with a sustained ceiling of rps.
func NewPerSecond(rps int) *Limiter {
	return New(&Config{RequestsPerSecond: rps, Burst: rps / 10})
}

// NewPerHost creates a limiter with an independent rps budget per host.
func NewPerHost(rps int) *Limiter {
	return New(&Config{RequestsPerSecond: rps, PerHost: true, Burst: rps / 10})
}

// Wait blocks until the global budget admits another request.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitForHost(ctx, "")
}

// WaitForHost blocks until the budget for host admits another request.
// With PerHost set each hostname gets its own budget; otherwise host
// is ignored and the global budget applies.
func (l *Limiter) WaitForHost(ctx context.Context, host string) error {
	l.mu.Lock()
	b := l.global
	if l.cfg.PerHost && host != "" {
		var ok bool
		if b, ok = l.hosts[host]; !ok {
			b = newBudget(l.cfg)
			l.hosts[host] = b
		}
	}
	now := time.Now()
	wait := b.reserve(l.cfg, now)
	l.last = now.Add(wait)
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// OnError grows the adaptive pause after a failed request.
func (l *Limiter) OnError() {
	if !l.cfg.AdaptiveSlowdown {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.global.pause == 0 {
		l.global.pause = 100 * time.Millisecond
	} else {
		l.global.pause = time.Duration(float64(l.global.pause) * l.cfg.SlowdownFactor)
	}
	if lim := l.cfg.SlowdownMaxDelay; lim > 0 && l.global.pause > lim {
		l.global.pause = lim
	}
}

// OnSuccess shrinks the adaptive pause back toward the configured base.
func (l *Limiter) OnSuccess() {
	if !l.cfg.AdaptiveSlowdown {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.global.pause > l.cfg.Delay {
		l.global.pause = time.Duration(float64(l.global.pause) * l.cfg.RecoveryRate)
		if l.global.pause < l.cfg.Delay {
			l.global.pause = l.cfg.Delay
		}
	}
}

// Stats is a point-in-time snapshot of limiter state. LastRequest is
// the stamp of the most recent admission, which may be in the future
// while that caller is still sleeping on its reservation.
type Stats struct {
	CurrentDelay     time.Duration
	LastRequest      time.Time
	HostLimiterCount int
	TokensAvailable  float64
	MinuteRequests   int
}

// Stats reports the limiter's current state.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := Stats{
		CurrentDelay:     l.global.pause,
		LastRequest:      l.last,
		HostLimiterCount: len(l.hosts),
	}
	if l.global.bucket != nil {
		st.TokensAvailable = l.global.bucket.level
	}
	if l.global.log != nil {
		st.MinuteRequests = len(l.global.log.admits)
	}
	return st
}

// ClearAllHosts drops every per-host budget. Long enumeration runs
// touch thousands of hostnames; dropping the map between stages keeps
// it from growing without bound.
func (l *Limiter) ClearAllHosts() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hosts != nil {
		l.hosts = make(map[string]*budget)
	}
}
