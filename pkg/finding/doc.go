// Package finding provides shared finding and result types used
// across the scan pipeline.
//
// Detection, aggregation, and the report writers all exchange the same
// Finding, Severity, and RuleFailure values, so the vocabulary lives in
// one leaf package instead of being re-declared per stage.
//
// Usage:
//
//	type EnumerationResult struct {
//	    finding.ScanResult
//	    Subdomains []string `json:"subdomains"`
//	}
package finding
