package finding

import "time"

// ScanResult is the base result type for pipeline stage summaries.
// Stage packages embed this and add stage-specific fields such as the
// subdomain list or download outcomes.
//
// Example embedding:
//
//	type DownloadResult struct {
//	    finding.ScanResult
//	    Outcomes []Outcome `json:"outcomes,omitempty"`
//	}
type ScanResult struct {
	Target    string        `json:"target"`
	StartTime time.Time     `json:"start_time,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}
