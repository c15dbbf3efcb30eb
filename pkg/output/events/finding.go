package events

import "github.com/jshound/jshound/pkg/finding"

// FindingEvent is emitted for each secret detection. The embedded
// finding carries only the redacted match, never the raw literal.
type FindingEvent struct {
	BaseEvent
	Finding finding.Finding `json:"finding"`
}
