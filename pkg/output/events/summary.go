package events

import "time"

// SummaryEvent represents the final scan totals. It contains enough to
// reconstruct the report header without replaying the event stream.
type SummaryEvent struct {
	BaseEvent
	Version    string         `json:"version"`
	Domain     string         `json:"domain"`
	Totals     SummaryTotals  `json:"totals"`
	BySeverity map[string]int `json:"by_severity,omitempty"`
	ByPlugin   map[string]int `json:"by_plugin,omitempty"`
	Timing     SummaryTiming  `json:"timing"`
	ExitCode   int            `json:"exit_code"`
}

// SummaryTotals contains aggregate counts for the whole pipeline.
type SummaryTotals struct {
	Subdomains   int `json:"subdomains"`
	Assets       int `json:"assets"`
	Downloaded   int `json:"downloaded"`
	Duplicates   int `json:"duplicates"`
	FailedAssets int `json:"failed_assets"`
	Findings     int `json:"findings"`
	RuleFailures int `json:"rule_failures"`
	Errors       int `json:"errors"`
}

// SummaryTiming contains timing information for the scan.
type SummaryTiming struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationSec float64   `json:"duration_sec"`
}
