package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/jshound/jshound/pkg/finding"
)

func init() {
	// Deterministic plain-text rendering regardless of the terminal the
	// tests run in.
	SetNoColor(true)
}

func TestFormatFinding(t *testing.T) {
	f := finding.Finding{
		Rule:     "aws-access-key-id",
		Severity: finding.Critical,
		Asset:    "https://cdn.example.com/main.js",
		Line:     88,
		Match:    "AKIA************MPLE",
	}

	line := FormatFinding(f)

	for _, want := range []string{
		"[aws-access-key-id]",
		"[critical]",
		"https://cdn.example.com/main.js:88",
		"[AKIA************MPLE]",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("FormatFinding missing %q in %q", want, line)
		}
	}
}

func TestFormatFinding_NoLine(t *testing.T) {
	f := finding.Finding{
		Rule:     "internal-url",
		Severity: finding.Medium,
		Asset:    "https://example.com/app.js",
	}

	line := FormatFinding(f)

	if strings.Contains(line, ":0") {
		t.Errorf("zero line number should be omitted, got %q", line)
	}
	if !strings.Contains(line, "[medium]") {
		t.Errorf("severity missing in %q", line)
	}
}

func TestFormatAsset(t *testing.T) {
	line := FormatAsset("app.example.com", "https://app.example.com/static/main.js", "stored")

	if !strings.Contains(line, "app.example.com") {
		t.Errorf("origin badge missing in %q", line)
	}
	if !strings.Contains(line, "https://app.example.com/static/main.js") {
		t.Errorf("URL missing in %q", line)
	}
	if !strings.Contains(line, "[stored]") {
		t.Errorf("outcome missing in %q", line)
	}

	// Origin is optional for assets found on the apex page alone.
	bare := FormatAsset("", "https://example.com/x.js", "failed")
	if strings.HasPrefix(bare, "[") && !strings.HasPrefix(bare, "[h") {
		// No origin badge expected; URL starts the line.
		t.Errorf("unexpected badge on bare asset line %q", bare)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{350 * time.Millisecond, "350ms"},
		{4200 * time.Millisecond, "4.2s"},
		{125 * time.Second, "2m05s"},
		{0, "0ms"},
		{59*time.Second + 900*time.Millisecond, "59.9s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	in := "scan done ✅ 23 hosts"

	out := SanitizeString(in)

	if UnicodeTerminal() {
		if out != in {
			t.Errorf("unicode terminal should pass through, got %q", out)
		}
		return
	}
	if strings.Contains(out, "✅") {
		t.Errorf("emoji not stripped on legacy terminal: %q", out)
	}
	if !strings.Contains(out, "23 hosts") {
		t.Errorf("ascii content lost: %q", out)
	}
}

func TestIcon(t *testing.T) {
	got := Icon("✓", "[+]")
	if UnicodeTerminal() {
		if got != "✓" {
			t.Errorf("Icon = %q, want unicode form", got)
		}
	} else if got != "[+]" {
		t.Errorf("Icon = %q, want ascii form", got)
	}
}

func TestSilentMode(t *testing.T) {
	defer SetSilent(false)

	SetSilent(true)
	if !IsSilent() {
		t.Fatal("IsSilent should report true after SetSilent(true)")
	}

	SetSilent(false)
	if IsSilent() {
		t.Fatal("IsSilent should report false after SetSilent(false)")
	}
}

func TestNoColorState(t *testing.T) {
	if !IsNoColor() {
		t.Fatal("init set no-color; IsNoColor should report true")
	}
}

func TestFormatFinding_LongMatchCapped(t *testing.T) {
	f := finding.Finding{
		Rule:     "jwt-token",
		Severity: finding.High,
		Asset:    "https://example.com/app.js",
		Match:    "eyJh" + strings.Repeat("*", 700) + "XVCJ",
	}

	line := FormatFinding(f)

	if strings.Contains(line, strings.Repeat("*", 100)) {
		t.Errorf("long match not capped for display: %d chars", len(line))
	}
	if !strings.Contains(line, "eyJh") {
		t.Errorf("match prefix lost in %q", line)
	}
	if !strings.Contains(line, "...") {
		t.Errorf("missing ellipsis in %q", line)
	}
}

func TestPrintSummary_Smoke(t *testing.T) {
	// Rendering goes to stderr; this exercises the box layout paths.
	PrintSummary(Summary{
		Domain:     "example.com",
		Subdomains: 12,
		Assets:     34,
		Downloaded: 30,
		Duplicates: 2,
		Failed:     2,
		Findings:   3,
		BySeverity: map[string]int{"critical": 1, "high": 2},
		Duration:   3200 * time.Millisecond,
	})

	PrintSummary(Summary{
		Domain:   "clean.example.com",
		Duration: 900 * time.Millisecond,
	})
}
