// Package events defines the event types emitted during a scan.
// All events are designed for JSON serialization and CI/CD integration.
//
// BaseEvent is embedded in every concrete event type and carries the
// fields shared by all of them. The scan runner produces events, the
// dispatcher routes them, and writers/hooks consume them; nothing in
// this package feeds back into pipeline control flow.
package events

import (
	"time"

	"github.com/jshound/jshound/pkg/finding"
)

// EventType represents the type of output event.
type EventType string

const (
	// EventTypeStart indicates a scan has started.
	EventTypeStart EventType = "start"
	// EventTypeStage indicates a pipeline stage finished.
	EventTypeStage EventType = "stage"
	// EventTypeAsset indicates a script asset download outcome.
	EventTypeAsset EventType = "asset"
	// EventTypeFinding indicates a secret detection.
	EventTypeFinding EventType = "finding"
	// EventTypeError indicates an error occurred.
	EventTypeError EventType = "error"
	// EventTypeSummary indicates the final scan totals.
	EventTypeSummary EventType = "summary"
	// EventTypeComplete indicates a scan has completed.
	EventTypeComplete EventType = "complete"
)

// Stage identifies a pipeline stage.
type Stage string

const (
	// StageEnumerate is subdomain enumeration.
	StageEnumerate Stage = "enumerate"
	// StageDiscover is JS asset discovery across live hosts.
	StageDiscover Stage = "discover"
	// StageDownload is asset retrieval to disk.
	StageDownload Stage = "download"
	// StageDetect is secret pattern matching.
	StageDetect Stage = "detect"
)

// Severity re-exports finding.Severity so event consumers need not
// import pkg/finding directly.
type Severity = finding.Severity

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	ScanID() string
}

// BaseEvent contains common fields for all events.
// It is designed to be embedded in specific event types.
type BaseEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"timestamp"`
	Scan string    `json:"scan_id"`
}

// NewBase stamps a BaseEvent with the current time.
func NewBase(t EventType, scanID string) BaseEvent {
	return BaseEvent{Type: t, Time: time.Now(), Scan: scanID}
}

// EventType returns the type of this event.
func (e BaseEvent) EventType() EventType { return e.Type }

// Timestamp returns when this event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ScanID returns the unique identifier for the scan that produced this event.
func (e BaseEvent) ScanID() string { return e.Scan }
