// Package detect applies compiled detection rules to document text
// and produces redacted findings. Rules are independent: the finding
// set for a document does not depend on rule order, and one broken
// rule never aborts the rest.
package detect

import (
	"fmt"
	"strings"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/plugin"
	"github.com/jshound/jshound/pkg/workerpool"
)

// contextRadius is how many characters of surrounding text, clamped to
// the match's line, are kept on each side of a match.
const contextRadius = defaults.ContextRadius

// Document is one scannable text: a fetched page or a downloaded
// JavaScript asset.
type Document struct {
	// Asset identifies the document in findings, usually the source
	// URL or local path.
	Asset string

	// Host is the subdomain the document came from.
	Host string

	// Text is the full document content.
	Text string
}

// Detector scans documents against a frozen rule list.
type Detector struct {
	pool *workerpool.Pool
}

// New creates a Detector. A nil pool falls back to the shared pool.
func New(pool *workerpool.Pool) *Detector {
	if pool == nil {
		pool = workerpool.Default()
	}
	return &Detector{pool: pool}
}

// Detect scans a single document sequentially. Matches are
// deduplicated by (rule, matched literal); each distinct literal
// yields one finding at its first occurrence. A rule that cannot be
// evaluated is recorded as a failure and the remaining rules continue.
func (d *Detector) Detect(doc Document, rules []plugin.Rule) ([]finding.Finding, []finding.RuleFailure) {
	var findings []finding.Finding
	var failures []finding.RuleFailure

	for _, rule := range rules {
		matches, failure := applyRule(doc, rule)
		if failure != nil {
			failures = append(failures, *failure)
			continue
		}
		findings = append(findings, matches...)
	}

	finding.Sort(findings)
	return findings, failures
}

// DetectAll scans documents in parallel on the pool and returns the
// merged, sorted findings. Per-document work is independent, so a
// slow or match-heavy document never delays findings from another
// beyond the final merge.
func (d *Detector) DetectAll(docs []Document, rules []plugin.Rule) ([]finding.Finding, []finding.RuleFailure) {
	type docResult struct {
		findings []finding.Finding
		failures []finding.RuleFailure
	}

	results := workerpool.Map(d.pool, docs, func(doc Document) docResult {
		f, fails := d.Detect(doc, rules)
		return docResult{findings: f, failures: fails}
	})

	var findings []finding.Finding
	var failures []finding.RuleFailure
	for _, r := range results {
		findings = append(findings, r.findings...)
		failures = append(failures, r.failures...)
	}

	finding.Sort(findings)
	return findings, failures
}

// applyRule runs one rule over the document. Panics from a malformed
// rule are contained and reported as a RuleFailure.
func applyRule(doc Document, rule plugin.Rule) (matches []finding.Finding, failure *finding.RuleFailure) {
	defer func() {
		if r := recover(); r != nil {
			matches = nil
			failure = &finding.RuleFailure{
				Rule:  rule.ID,
				Asset: doc.Asset,
				Err:   fmt.Sprint(r),
			}
		}
	}()

	locs := rule.Pattern.FindAllStringIndex(doc.Text, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(locs))
	for _, loc := range locs {
		literal := doc.Text[loc[0]:loc[1]]
		if seen[literal] {
			continue
		}
		seen[literal] = true

		redacted := finding.Redact(literal)
		matches = append(matches, finding.Finding{
			Rule:        rule.ID,
			Plugin:      rule.Plugin,
			Severity:    rule.Severity,
			Description: rule.Description,
			Asset:       doc.Asset,
			Host:        doc.Host,
			Line:        1 + strings.Count(doc.Text[:loc[0]], "\n"),
			Match:       redacted,
			Context:     contextAround(doc.Text, loc[0], loc[1], redacted),
		})
	}
	return matches, nil
}

// contextAround returns the text surrounding a match, clamped to the
// match's line, with the matched literal replaced by its redacted
// form so raw secrets never leave this package.
func contextAround(text string, start, end int, redacted string) string {
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	lineEnd := len(text)
	if i := strings.IndexByte(text[end:], '\n'); i >= 0 {
		lineEnd = end + i
	}

	ctxStart := start - contextRadius
	if ctxStart < lineStart {
		ctxStart = lineStart
	}
	ctxEnd := end + contextRadius
	if ctxEnd > lineEnd {
		ctxEnd = lineEnd
	}

	return strings.TrimSpace(text[ctxStart:start] + redacted + text[end:ctxEnd])
}
