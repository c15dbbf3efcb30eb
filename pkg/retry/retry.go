// Package retry is the one retry engine in the pipeline. OSINT
// lookups, page fetches and asset downloads all funnel their
// try-again logic through Do so backoff behaviour stays uniform and
// context cancellation is honoured in one place.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Strategy selects how the delay grows between attempts.
type Strategy int

const (
	// Exponential doubles the delay each attempt.
	Exponential Strategy = iota
	// Linear grows the delay by InitDelay each attempt.
	Linear
	// Constant keeps the delay fixed.
	Constant
)

// Config controls retry behaviour.
type Config struct {
	MaxAttempts int           // total tries including the first; 0 disables the call
	InitDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // cap on any single delay
	Strategy    Strategy
	Jitter      bool // spread each delay by up to a quarter either way
}

// DefaultConfig is 3 attempts, exponential 1s..30s, jittered.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		InitDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Strategy:    Exponential,
		Jitter:      true,
	}
}

// StopError marks an error as permanent. Do unwraps it and returns
// immediately, so a 404 does not burn the remaining attempts.
type StopError struct {
	Err error
}

func (e *StopError) Error() string { return e.Err.Error() }
func (e *StopError) Unwrap() error { return e.Err }

// Stop marks err as not worth retrying.
func Stop(err error) error {
	return &StopError{Err: err}
}

// AfterError carries a server-suggested wait, typically parsed from a
// 429 Retry-After header. The suggestion replaces the scheduled
// backoff when it is longer, still capped by Config.MaxDelay.
type AfterError struct {
	Err   error
	Delay time.Duration
}

func (e *AfterError) Error() string { return e.Err.Error() }
func (e *AfterError) Unwrap() error { return e.Err }

// After attaches a minimum wait of d to err.
func After(err error, d time.Duration) error {
	return &AfterError{Err: err, Delay: d}
}

// Do runs fn until it succeeds, the attempts run out, or the context
// ends. It returns nil on the first success, ctx.Err() on
// cancellation, and otherwise the error from the final attempt.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var stop *StopError
		if errors.As(lastErr, &stop) {
			return stop.Err
		}

		// The final failure returns without sleeping.
		if attempt == cfg.MaxAttempts-1 {
			break
		}
		if err := sleep(ctx, nextDelay(cfg, attempt, lastErr)); err != nil {
			return err
		}
	}
	return lastErr
}

// nextDelay resolves the wait after the given 0-indexed attempt,
// taking a server suggestion over the schedule when it asks for more.
func nextDelay(cfg Config, attempt int, cause error) time.Duration {
	delay := backoff(cfg, attempt)

	var suggested *AfterError
	if errors.As(cause, &suggested) && suggested.Delay > delay {
		delay = suggested.Delay
	}
	return clamp(delay, cfg.MaxDelay)
}

// backoff computes the scheduled delay for an attempt. The growth math
// runs in float64: at high attempt counts int64 multiplication wraps
// negative, while the float saturates and clamps to MaxDelay.
func backoff(cfg Config, attempt int) time.Duration {
	var raw float64
	switch cfg.Strategy {
	case Exponential:
		raw = float64(cfg.InitDelay) * math.Pow(2, float64(attempt))
	case Linear:
		raw = float64(cfg.InitDelay) * float64(attempt+1)
	default:
		raw = float64(cfg.InitDelay)
	}

	delay := cfg.MaxDelay
	if !math.IsInf(raw, 1) && raw < float64(cfg.MaxDelay) {
		delay = time.Duration(raw)
	}
	if cfg.Strategy == Constant {
		delay = clamp(cfg.InitDelay, cfg.MaxDelay)
	}

	if cfg.Jitter && delay > 0 {
		if quarter := int64(delay) / 4; quarter > 0 {
			offset := time.Duration(rand.Int64N(quarter))
			if rand.IntN(2) == 0 {
				delay += offset
			} else {
				delay -= offset
			}
		}
	}
	return clamp(delay, cfg.MaxDelay)
}

func clamp(d, limit time.Duration) time.Duration {
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

// sleep waits for d or for the context, whichever ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
