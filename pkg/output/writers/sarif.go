package writers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/jsonutil"
	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
)

var _ dispatcher.Writer = (*SARIFWriter)(nil)

// SARIFWriter emits findings as a SARIF 2.1.0 document, the exchange
// format consumed by the GitHub Security tab, GitLab SAST, and Azure
// DevOps. Results accumulate in memory; Close serializes the whole
// document at once.
//
// Two GitHub Advanced Security conventions are honored so uploads get
// first-class treatment: every result carries a matchBasedId/v1
// fingerprint for deduplication across scans, and every rule carries a
// security-severity property that drives the severity badge.
type SARIFWriter struct {
	w       io.Writer
	mu      sync.Mutex
	opts    SARIFOptions
	results []sarifResult
	rules   map[string]sarifRule
}

// SARIFOptions overrides the tool metadata stamped into the driver
// block. Zero fields fall back to the jshound identity.
type SARIFOptions struct {
	ToolName     string
	ToolVersion  string
	ToolURI      string
	Organization string
}

func (o SARIFOptions) withDefaults() SARIFOptions {
	if o.ToolName == "" {
		o.ToolName = "jshound"
	}
	if o.ToolVersion == "" {
		o.ToolVersion = defaults.Version
	}
	if o.ToolURI == "" {
		o.ToolURI = "https://github.com/jshound/jshound"
	}
	if o.Organization == "" {
		o.Organization = "jshound"
	}
	return o
}

// Wire types for the subset of SARIF 2.1.0 jshound produces.

type sarifDocument struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool     `json:"tool"`
	Results    []sarifResult `json:"results"`
	ColumnKind string        `json:"columnKind,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name            string      `json:"name"`
	Version         string      `json:"version,omitempty"`
	SemanticVersion string      `json:"semanticVersion,omitempty"`
	InformationURI  string      `json:"informationUri,omitempty"`
	Organization    string      `json:"organization,omitempty"`
	Rules           []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name,omitempty"`
	ShortDescription *sarifMessage       `json:"shortDescription,omitempty"`
	FullDescription  *sarifMessage       `json:"fullDescription,omitempty"`
	DefaultConfig    *sarifConfiguration `json:"defaultConfiguration,omitempty"`
	Help             *sarifHelp          `json:"help,omitempty"`
	HelpURI          string              `json:"helpUri,omitempty"`
	Properties       map[string]any      `json:"properties,omitempty"`
}

type sarifConfiguration struct {
	Level string `json:"level"`
}

type sarifHelp struct {
	Text     string `json:"text"`
	Markdown string `json:"markdown,omitempty"`
}

type sarifResult struct {
	RuleID       string            `json:"ruleId"`
	Level        string            `json:"level"`
	Message      sarifMessage      `json:"message"`
	Locations    []sarifLocation   `json:"locations,omitempty"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
	Properties   map[string]any    `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text     string `json:"text"`
	Markdown string `json:"markdown,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation *sarifPhysicalLocation `json:"physicalLocation,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// NewSARIFWriter builds a buffering SARIF writer. Safe for concurrent
// Write calls; nothing reaches w until Close.
func NewSARIFWriter(w io.Writer, opts SARIFOptions) *SARIFWriter {
	return &SARIFWriter{
		w:     w,
		opts:  opts.withDefaults(),
		rules: make(map[string]sarifRule),
	}
}

// generateFingerprint hashes the rule, location, and redacted match
// into the stable identity GitHub uses to carry dismissals and triage
// state across uploads.
func generateFingerprint(ruleID, assetURL string, line int, match string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%s:%d:%s", ruleID, assetURL, line, match)
	return hex.EncodeToString(h.Sum(nil))
}

// cweCategoryKeys orders the mapping keys longest first so containment
// matching picks the most specific key ("private-key" beats "jwt").
var cweCategoryKeys = func() []string {
	keys := make([]string, 0, len(defaults.CWECategoryMapping))
	for k := range defaults.CWECategoryMapping {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// ruleCWE maps a rule ID to its CWE weakness by substring over the
// category keys. Rule IDs are provider-first (aws-access-key-id,
// github-pat, rsa-private-key), which makes containment reliable.
func ruleCWE(ruleID string) defaults.CWECategory {
	lower := strings.ToLower(ruleID)
	for _, key := range cweCategoryKeys {
		if strings.Contains(lower, key) {
			return defaults.CWEForCategory(key)
		}
	}
	return defaults.CWEForCategory("")
}

// ruleDisplayName turns "aws-access-key-id" into "Aws Access Key Id".
func ruleDisplayName(ruleID string) string {
	words := strings.Split(ruleID, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// buildRuleHelp assembles the rule help shown inline in IDEs and on
// the GitHub alert page.
func buildRuleHelp(ruleID, name string, cwe defaults.CWECategory) *sarifHelp {
	plainText := fmt.Sprintf(
		"An exposed %s was detected in a publicly reachable JavaScript asset. "+
			"Rotate the credential immediately and remove it from client-side code.",
		strings.ToLower(name))

	markdown := fmt.Sprintf(`## %s

A secret matching the **%s** pattern was found in a downloaded JavaScript asset.

### Impact

Secrets shipped in client-side JavaScript are readable by anyone who can load the page. Assume the credential is compromised.

### Remediation

1. Rotate the exposed credential immediately
2. Remove the secret from the bundle and move the call behind a server-side endpoint
3. Add a secret scanner to the build pipeline to block regressions

### References

- [%s](%s)
- [OWASP Secrets Management Cheat Sheet](https://cheatsheetseries.owasp.org/cheatsheets/Secrets_Management_Cheat_Sheet.html)
`, name, ruleID, cwe.FullName, cwe.URL)

	return &sarifHelp{Text: plainText, Markdown: markdown}
}

// Write ingests a finding event; anything else is silently ignored.
func (sw *SARIFWriter) Write(event events.Event) error {
	fe, ok := event.(*events.FindingEvent)
	if !ok {
		return nil
	}
	f := fe.Finding

	cwe := ruleCWE(f.Rule)
	name := ruleDisplayName(f.Rule)

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, seen := sw.rules[f.Rule]; !seen {
		sw.rules[f.Rule] = buildRule(f, name, cwe)
	}
	sw.results = append(sw.results, buildResult(f, name, cwe))

	return nil
}

func buildRule(f finding.Finding, name string, cwe defaults.CWECategory) sarifRule {
	desc := f.Description
	if desc == "" {
		desc = fmt.Sprintf("Detects exposed %s values", strings.ToLower(name))
	}

	return sarifRule{
		ID:               f.Rule,
		Name:             name,
		ShortDescription: &sarifMessage{Text: desc},
		FullDescription: &sarifMessage{
			Text: fmt.Sprintf(
				"%s (%s). Secrets embedded in JavaScript assets are exposed to every visitor.",
				desc, cwe.FullName),
		},
		DefaultConfig: &sarifConfiguration{Level: f.Severity.ToSARIF()},
		Help:          buildRuleHelp(f.Rule, name, cwe),
		HelpURI:       cwe.URL,
		Properties: map[string]any{
			"precision":         "high",
			"tags":              []string{"security", "secret", "external/cwe", cwe.Code},
			"security-severity": f.Severity.ToSARIFScore(),
		},
	}
}

func buildResult(f finding.Finding, name string, cwe defaults.CWECategory) sarifResult {
	// SARIF regions are 1-based; line 0 means the scanner could not
	// attribute the match.
	line := max(f.Line, 1)

	msgMarkdown := fmt.Sprintf(
		"**Exposed Secret:** %s\n\n"+
			"| Property | Value |\n"+
			"|----------|-------|\n"+
			"| Rule | `%s` |\n"+
			"| Severity | %s |\n"+
			"| Asset | `%s` |\n"+
			"| Line | %d |\n"+
			"| Match | `%s` |",
		name, f.Rule, f.Severity, f.Asset, line, f.Match)

	result := sarifResult{
		RuleID: f.Rule,
		Level:  f.Severity.ToSARIF(),
		Message: sarifMessage{
			Text:     fmt.Sprintf("Exposed %s in %s", strings.ToLower(name), f.Asset),
			Markdown: msgMarkdown,
		},
		Locations: []sarifLocation{{
			PhysicalLocation: &sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: f.Asset},
				Region:           &sarifRegion{StartLine: line},
			},
		}},
		Fingerprints: map[string]string{
			"matchBasedId/v1": generateFingerprint(f.Rule, f.Asset, f.Line, f.Match),
		},
		Properties: map[string]any{
			"plugin":   f.Plugin,
			"severity": string(f.Severity),
			"cwe":      cwe.Code,
		},
	}
	if f.Host != "" {
		result.Properties["host"] = f.Host
	}
	return result
}

// Flush does nothing; the document only makes sense as a whole.
func (sw *SARIFWriter) Flush() error { return nil }

// Close serializes the buffered run and closes w if it is closable.
func (sw *SARIFWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	// Emit rules in ID order so repeated scans diff cleanly.
	ids := make([]string, 0, len(sw.rules))
	for id := range sw.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rules := make([]sarifRule, 0, len(ids))
	for _, id := range ids {
		rules = append(rules, sw.rules[id])
	}

	// GitHub rejects "results": null; keep it an array even when empty.
	results := sw.results
	if results == nil {
		results = []sarifResult{}
	}

	doc := sarifDocument{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:       sarifTool{Driver: sw.driver(rules)},
			Results:    results,
			ColumnKind: "utf16CodeUnits",
		}},
	}

	encoder := jsonutil.NewStreamEncoder(sw.w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("sarif: encode: %w", err)
	}

	if closer, ok := sw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (sw *SARIFWriter) driver(rules []sarifRule) sarifDriver {
	return sarifDriver{
		Name:            sw.opts.ToolName,
		Version:         sw.opts.ToolVersion,
		SemanticVersion: sw.opts.ToolVersion,
		InformationURI:  sw.opts.ToolURI,
		Organization:    sw.opts.Organization,
		Rules:           rules,
	}
}

// SupportsEvent limits the writer to finding events; SARIF has no
// representation for pipeline progress.
func (sw *SARIFWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeFinding
}
