package events

// StageEvent is emitted when a pipeline stage finishes. Count carries
// the stage's primary output size: subdomains for enumerate, assets
// for discover, stored files for download, findings for detect.
type StageEvent struct {
	BaseEvent
	Stage      Stage   `json:"stage"`
	Count      int     `json:"count"`
	Errors     int     `json:"errors,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}
