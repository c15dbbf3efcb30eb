package events

// StartEvent is emitted when a scan begins. It records the target and
// the effective configuration so a report is self-describing.
type StartEvent struct {
	BaseEvent
	Domain string     `json:"domain"`
	Config ScanConfig `json:"config"`
}

// ScanConfig contains the scan configuration settings.
type ScanConfig struct {
	Sources     []string `json:"sources,omitempty"`
	Plugins     []string `json:"plugins,omitempty"`
	Rules       int      `json:"rules"`
	Concurrency int      `json:"concurrency"`
	TimeoutSec  int      `json:"timeout_sec"`
	RateLimit   float64  `json:"rate_limit,omitempty"`
	OutputDir   string   `json:"output_dir,omitempty"`
	Headless    bool     `json:"headless,omitempty"`
}
