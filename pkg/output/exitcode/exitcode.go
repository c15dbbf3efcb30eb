// Package exitcode provides semantic exit codes for CI/CD integration.
// Exit codes communicate scan outcomes to automation pipelines.
//
// Exit codes:
//   - 0: Success (no secrets detected)
//   - 1: Secrets found (configurable)
//   - 2: Invalid configuration
//   - 3: Network failure
//   - 4: Internal error
//   - 130: Scan interrupted
package exitcode

import (
	"context"
	"fmt"
	"sync"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/output/events"
)

// Code represents a semantic exit code for CI/CD pipelines.
type Code int

const (
	// Success indicates the scan completed with no secrets detected.
	Success Code = defaults.ExitSuccess
	// SecretsFound indicates one or more exposed secrets were detected.
	SecretsFound Code = defaults.ExitSecretsFound
	// Configuration indicates invalid configuration was provided.
	Configuration Code = defaults.ExitUserError
	// Network indicates a network failure prevented the scan.
	Network Code = defaults.ExitNetworkError
	// Internal indicates an unexpected internal error.
	Internal Code = defaults.ExitInternalError
	// Interrupted indicates the scan was interrupted (e.g., SIGINT).
	Interrupted Code = defaults.ExitInterrupted
)

// codeStrings maps exit codes to machine-readable names.
var codeStrings = map[Code]string{
	Success:       "success",
	SecretsFound:  "secrets_found",
	Configuration: "invalid_configuration",
	Network:       "network_failure",
	Internal:      "internal_error",
	Interrupted:   "scan_interrupted",
}

// codeDescriptions provides detailed descriptions for exit codes.
var codeDescriptions = map[Code]string{
	Success:       "Scan completed with no secrets detected",
	SecretsFound:  "One or more exposed secrets were detected",
	Configuration: "Invalid configuration provided",
	Network:       "Network failure prevented the scan from completing",
	Interrupted:   "Scan was interrupted by user or signal",
	Internal:      "Scan terminated by an internal error",
}

// Config holds configuration for the exit code manager.
type Config struct {
	// SecretsCode is the exit code to return when secrets are detected.
	// Default: 1
	SecretsCode int

	// ExitOnError determines whether too many stream errors fail the run.
	// Probe and download failures are routine during recon, so the error
	// gate is opt-in.
	ExitOnError bool

	// ErrorThreshold is the number of errors that triggers an error exit.
	// Default: 50
	ErrorThreshold int
}

// DefaultConfig returns the default exit code configuration.
func DefaultConfig() Config {
	return Config{
		SecretsCode:    defaults.ExitSecretsFound,
		ExitOnError:    false,
		ErrorThreshold: 50,
	}
}

// Manager tracks scan outcomes and determines the appropriate exit code.
// It implements the dispatcher hook interface, so it can be registered
// alongside writers and observe the event stream directly.
type Manager struct {
	cfg      Config
	findings int
	errors   int
	mu       sync.Mutex

	// Special state flags
	configError  bool
	networkError bool
	interrupted  bool
	internalErr  bool
}

// New creates a new exit code manager with the given configuration.
func New(cfg Config) *Manager {
	// Apply defaults for zero values
	if cfg.SecretsCode == 0 {
		cfg.SecretsCode = defaults.ExitSecretsFound
	}
	if cfg.ErrorThreshold == 0 {
		cfg.ErrorThreshold = 50
	}

	return &Manager{
		cfg: cfg,
	}
}

// OnEvent updates counters from the scan event stream.
func (m *Manager) OnEvent(_ context.Context, event events.Event) error {
	switch event.(type) {
	case *events.FindingEvent:
		m.RecordFinding()
	case *events.ErrorEvent:
		m.RecordError()
	}
	return nil
}

// EventTypes returns the event types the manager observes.
func (m *Manager) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeFinding,
		events.EventTypeError,
	}
}

// RecordFinding increments the finding counter.
func (m *Manager) RecordFinding() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findings++
}

// RecordError increments the error counter.
func (m *Manager) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// SetConfigError marks that a configuration error occurred.
func (m *Manager) SetConfigError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configError = true
}

// SetNetworkError marks that a network failure stopped the scan.
func (m *Manager) SetNetworkError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkError = true
}

// SetInterrupted marks that the scan was interrupted.
func (m *Manager) SetInterrupted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupted = true
}

// SetInternalError marks that an unexpected internal error occurred.
func (m *Manager) SetInternalError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.internalErr = true
}

// ExitCode returns the appropriate exit code based on recorded outcomes.
// The returned string provides a human-readable reason for the code.
//
// Priority order (highest to lowest):
//  1. Interrupted
//  2. Configuration error
//  3. Network failure
//  4. Internal error
//  5. Too many errors (if ExitOnError enabled)
//  6. Secrets found
//  7. Success
func (m *Manager) ExitCode() (Code, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check special states in priority order
	if m.interrupted {
		return Interrupted, codeDescriptions[Interrupted]
	}

	if m.configError {
		return Configuration, codeDescriptions[Configuration]
	}

	if m.networkError {
		return Network, codeDescriptions[Network]
	}

	if m.internalErr {
		return Internal, codeDescriptions[Internal]
	}

	// Check error threshold
	if m.cfg.ExitOnError && m.errors >= m.cfg.ErrorThreshold {
		return Network, fmt.Sprintf("Too many errors during scanning (threshold: %d, actual: %d)",
			m.cfg.ErrorThreshold, m.errors)
	}

	// Check findings
	if m.findings > 0 {
		return Code(m.cfg.SecretsCode), fmt.Sprintf("%s (count: %d)",
			codeDescriptions[SecretsFound], m.findings)
	}

	return Success, codeDescriptions[Success]
}

// Stats returns the current finding and error counts.
func (m *Manager) Stats() (findings, errors int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findings, m.errors
}

// Reset clears all recorded outcomes and state flags.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findings = 0
	m.errors = 0
	m.configError = false
	m.networkError = false
	m.interrupted = false
	m.internalErr = false
}

// CodeString returns the machine-readable name of an exit code.
func CodeString(code Code) string {
	if s, ok := codeStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown_code_%d", code)
}

// CodeDescription returns a detailed description of an exit code.
func CodeDescription(code Code) string {
	if s, ok := codeDescriptions[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown exit code: %d", code)
}
