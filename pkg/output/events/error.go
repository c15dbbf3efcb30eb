package events

// ErrorEvent is emitted when an error occurs during scanning.
// Per-item failures are non-fatal; the pipeline continues past them.
type ErrorEvent struct {
	BaseEvent
	Stage   Stage  `json:"stage,omitempty"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}
