package config

import "errors"

// Failure modes surfaced during flag and file parsing. Match with
// errors.Is; the wrapped message carries the offending field.
var (
	// ErrInvalidConfig marks a value that does not parse or is out of
	// range.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingRequired marks an option the run cannot proceed
	// without.
	ErrMissingRequired = errors.New("config: missing required field")
)
