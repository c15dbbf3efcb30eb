package ui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/strutil"
)

// maxMatchDisplay caps the redacted token in console lines. Long
// matches like JWTs keep their full redacted form in the export
// writers; the terminal line only needs enough to identify the token.
const maxMatchDisplay = 64

// FormatFinding renders a finding as a nuclei-style result line:
//
//	[aws-access-key-id] [critical] https://cdn.example.com/main.js:88 [AKIA************MPLE]
//
// The matched token is already redacted by the detector, so the line is
// safe for logs and CI transcripts.
func FormatFinding(f finding.Finding) string {
	var out strings.Builder

	out.WriteString(BracketStyle.Render("["))
	out.WriteString(RuleStyle.Render(f.Rule))
	out.WriteString(BracketStyle.Render("] "))

	sev := f.Severity.String()
	out.WriteString(BracketStyle.Render("["))
	out.WriteString(SeverityStyle(sev).Render(sev))
	out.WriteString(BracketStyle.Render("] "))

	out.WriteString(URLStyle.Render(f.Asset))
	if f.Line > 0 {
		out.WriteString(ConfigValueStyle.Render(":" + strconv.Itoa(f.Line)))
	}

	if f.Match != "" {
		out.WriteString(" ")
		out.WriteString(BracketStyle.Render("["))
		out.WriteString(StatLabelStyle.Render(strutil.Truncate(f.Match, maxMatchDisplay)))
		out.WriteString(BracketStyle.Render("]"))
	}

	return out.String()
}

// PrintFinding writes a finding line to stdout. Finding lines are the
// product of a scan and print even in silent mode, matching nuclei's
// -silent semantics.
func PrintFinding(f finding.Finding) {
	fmt.Fprintln(os.Stdout, FormatFinding(f))
}

// FormatAsset renders a discovered script asset with its download
// outcome label:
//
//	[app.example.com] https://app.example.com/static/main.js [stored]
func FormatAsset(origin, url, outcome string) string {
	var out strings.Builder

	if origin != "" {
		out.WriteString(BracketStyle.Render("["))
		out.WriteString(SourceStyle.Render(origin))
		out.WriteString(BracketStyle.Render("] "))
	}

	out.WriteString(ConfigValueStyle.Render(url))

	if outcome != "" {
		out.WriteString(" ")
		out.WriteString(BracketStyle.Render("["))
		out.WriteString(OutcomeStyle(outcome).Render(outcome))
		out.WriteString(BracketStyle.Render("]"))
	}

	return out.String()
}

// PrintAsset writes an asset line to stderr. Suppressed in silent mode.
func PrintAsset(origin, url, outcome string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(os.Stderr, FormatAsset(origin, url, outcome))
}

// PrintStage writes a pipeline stage transition to stderr:
//
//	[enumerate] 23 subdomains in 1.4s
func PrintStage(stage, summary string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n",
		StageStyle.Render("["+stage+"]"),
		SanitizeString(summary),
	)
}

// PrintSubdomain writes an enumerated subdomain with its source badge
// to stderr. Used in verbose mode.
func PrintSubdomain(host, source string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(os.Stderr, "  %s %s\n",
		ConfigValueStyle.Render(host),
		BracketStyle.Render("[")+SourceStyle.Render(source)+BracketStyle.Render("]"),
	)
}
