package events

// CompleteEvent is emitted when a scan finishes. Success is false when
// the scan was canceled or aborted; partial results still precede it.
type CompleteEvent struct {
	BaseEvent
	Success  bool          `json:"success"`
	ExitCode int           `json:"exit_code"`
	Summary  *SummaryEvent `json:"summary,omitempty"`
}
