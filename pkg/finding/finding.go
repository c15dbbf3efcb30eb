package finding

import (
	"sort"
	"strings"

	"github.com/jshound/jshound/pkg/defaults"
)

// Finding represents a single secret or sensitive-pattern match in a
// scanned document. Match always holds the redacted form; the raw
// literal is used for deduplication during detection and then dropped.
type Finding struct {
	Rule        string   `json:"rule"`
	Plugin      string   `json:"plugin"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
	Asset       string   `json:"asset"`
	Host        string   `json:"host,omitempty"`
	Line        int      `json:"line,omitempty"`
	Match       string   `json:"match"`
	Context     string   `json:"context,omitempty"`
}

// RuleFailure records a rule that could not be evaluated against a
// document. The remaining rules still run; failures surface in the
// final result instead of aborting the document's scan.
type RuleFailure struct {
	Rule  string `json:"rule"`
	Asset string `json:"asset"`
	Err   string `json:"error"`
}

// Redact masks a matched secret for safe display, keeping the first and
// last four characters. Values too short to keep anything are fully
// masked.
func Redact(value string) string {
	const keep = defaults.MaskKeepPrefix + defaults.MaskKeepSuffix
	if len(value) <= keep {
		return strings.Repeat("*", len(value))
	}
	return value[:defaults.MaskKeepPrefix] +
		strings.Repeat("*", len(value)-keep) +
		value[len(value)-defaults.MaskKeepSuffix:]
}

// Sort orders findings by severity (highest first), then rule ID,
// asset, and line. Detection runs rules in arbitrary order; sorting
// here keeps the reported set stable across runs.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if sa, sb := a.Severity.Score(), b.Severity.Score(); sa != sb {
			return sa > sb
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Asset != b.Asset {
			return a.Asset < b.Asset
		}
		return a.Line < b.Line
	})
}

// CountBySeverity tallies findings per severity level for summaries.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// CountByPlugin tallies findings per contributing plugin.
func CountByPlugin(findings []Finding) map[string]int {
	counts := make(map[string]int)
	for _, f := range findings {
		counts[f.Plugin]++
	}
	return counts
}
