package scan

import (
	"time"

	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/output/events"
)

// Result aggregates everything one scan produced. It is complete when
// Run returns and is not mutated afterward.
type Result struct {
	ScanID    string        `json:"scan_id"`
	Domain    string        `json:"domain"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`

	// Subdomains is the crawled host list, enumerated or seeded.
	Subdomains []string `json:"subdomains"`

	// Assets holds one entry per discovered script, in URL order. An
	// entry with neither Path nor Error was never attempted.
	Assets []AssetResult `json:"assets"`

	Findings     []finding.Finding     `json:"findings"`
	RuleFailures []finding.RuleFailure `json:"rule_failures,omitempty"`

	// Errors lists every recorded pipeline error, the fatal one
	// included when the scan was cut short.
	Errors []Error `json:"errors,omitempty"`
}

// AssetResult is one asset's download outcome flattened for reporting.
type AssetResult struct {
	URL       string `json:"url"`
	Origin    string `json:"origin"`
	Source    string `json:"source,omitempty"`
	Path      string `json:"path,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Error is one recorded scan error. Stage is empty for the fatal error
// that ended the scan.
type Error struct {
	Stage   events.Stage `json:"stage,omitempty"`
	Target  string       `json:"target,omitempty"`
	Message string       `json:"message"`
}

// Downloaded counts assets stored to disk, duplicates excluded.
func (r *Result) Downloaded() int {
	n := 0
	for _, a := range r.Assets {
		if a.Error == "" && !a.Duplicate && a.Path != "" {
			n++
		}
	}
	return n
}

// Duplicates counts assets whose body matched an earlier download.
func (r *Result) Duplicates() int {
	n := 0
	for _, a := range r.Assets {
		if a.Duplicate {
			n++
		}
	}
	return n
}

// Failed counts assets that could not be downloaded.
func (r *Result) Failed() int {
	n := 0
	for _, a := range r.Assets {
		if a.Error != "" {
			n++
		}
	}
	return n
}
