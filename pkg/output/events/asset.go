package events

// AssetEvent is emitted once per discovered script asset after the
// download stage resolves it. Exactly one of Path or Error is set for
// non-duplicate assets; duplicates carry the path of the earlier copy.
type AssetEvent struct {
	BaseEvent
	URL       string `json:"url"`
	Origin    string `json:"origin,omitempty"`
	Source    string `json:"source,omitempty"`
	Path      string `json:"path,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Outcome classifies the asset for display: stored, duplicate, or failed.
func (e *AssetEvent) Outcome() string {
	switch {
	case e.Error != "":
		return "failed"
	case e.Duplicate:
		return "duplicate"
	default:
		return "stored"
	}
}
