package finding

import "errors"

// Sentinel errors for common scan failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrTimeout indicates the target did not respond within the
	// configured deadline.
	ErrTimeout = errors.New("finding: timeout")

	// ErrTargetUnreachable indicates the target host could not be
	// reached (DNS failure, connection refused, etc.).
	ErrTargetUnreachable = errors.New("finding: target unreachable")

	// ErrNoRules indicates no detection rules were loaded; scanning
	// would silently produce a vacuous result.
	ErrNoRules = errors.New("finding: no detection rules loaded")

	// ErrRateLimited indicates a remote endpoint is rate-limiting
	// requests (429 from a target or an enumeration source).
	ErrRateLimited = errors.New("finding: rate limiting detected")
)
