package writers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jshound/jshound/pkg/finding"
)

func TestTemplateWriterBuiltinCSV(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTemplateWriter(&buf, TemplateConfig{BuiltIn: "csv"})
	if err != nil {
		t.Fatalf("NewTemplateWriter: %v", err)
	}

	if err := tw.Write(newFindingEvent(testFinding("aws-access-key-id", finding.Critical,
		"https://cdn.example.com/app.js", 88, "AKIA************MPLE"))); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tw.Write(newFindingEvent(testFinding("generic-api-key", finding.Medium,
		"https://cdn.example.com/v.js", 12, `key,"quoted"`))); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Rule,Severity,Plugin,Asset,Line,Match") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(out, "aws-access-key-id,critical,regex,https://cdn.example.com/app.js,88") {
		t.Errorf("missing finding row:\n%s", out)
	}
	// Commas and quotes in the match must be CSV-escaped.
	if !strings.Contains(out, `"key,""quoted"""`) {
		t.Errorf("match not CSV escaped:\n%s", out)
	}
}

func TestTemplateWriterBuiltinTextSummary(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTemplateWriter(&buf, TemplateConfig{BuiltIn: "text-summary"})
	if err != nil {
		t.Fatalf("NewTemplateWriter: %v", err)
	}

	if err := tw.Write(newStartEvent("example.com")); err != nil {
		t.Fatalf("Write start: %v", err)
	}
	if err := tw.Write(newFindingEvent(testFinding("slack-webhook", finding.High,
		"https://cdn.example.com/chat.js", 12, "hooks.slack.com/****"))); err != nil {
		t.Fatalf("Write finding: %v", err)
	}
	if err := tw.Write(newSummaryEvent("example.com", 1, map[string]int{"high": 1})); err != nil {
		t.Fatalf("Write summary: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"jshound Scan Summary",
		"Domain: example.com",
		"Subdomains: 12",
		"Downloaded: 30",
		"Findings: 1",
		"High: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestTemplateWriterCustomString(t *testing.T) {
	var buf bytes.Buffer
	tw, err := NewTemplateWriter(&buf, TemplateConfig{
		TemplateString: `{{ .Domain | upper }} found={{ .TotalFindings }} worst={{ .HighestSeverity }}`,
	})
	if err != nil {
		t.Fatalf("NewTemplateWriter: %v", err)
	}

	if err := tw.Write(newStartEvent("example.com")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tw.Write(newFindingEvent(testFinding("jwt-token", finding.Low,
		"https://cdn.example.com/auth.js", 3, "eyJh****"))); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tw.Write(newFindingEvent(testFinding("github-pat", finding.Critical,
		"https://cdn.example.com/app.js", 7, "ghp_****"))); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := "EXAMPLE.COM found=2 worst=critical"
	if got := buf.String(); got != want {
		t.Errorf("rendered = %q, want %q", got, want)
	}
}

func TestTemplateWriterUnknownBuiltin(t *testing.T) {
	_, err := NewTemplateWriter(&bytes.Buffer{}, TemplateConfig{BuiltIn: "nope"})
	if err == nil {
		t.Fatal("expected error for unknown built-in template")
	}
	if !strings.Contains(err.Error(), "unknown built-in") {
		t.Errorf("error = %v", err)
	}
}

func TestTemplateWriterInvalidTemplate(t *testing.T) {
	_, err := NewTemplateWriter(&bytes.Buffer{}, TemplateConfig{TemplateString: "{{ .Broken"})
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTemplateWriterNoTemplate(t *testing.T) {
	_, err := NewTemplateWriter(&bytes.Buffer{}, TemplateConfig{})
	if err == nil {
		t.Fatal("expected error when no template is configured")
	}
}

func TestEscapeCSV(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"line\nbreak", "\"line\nbreak\""},
	}
	for _, tt := range tests {
		if got := tmplEscapeCSV(tt.in); got != tt.want {
			t.Errorf("tmplEscapeCSV(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
