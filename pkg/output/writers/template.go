package writers

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/jsonutil"
	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
)

var _ dispatcher.Writer = (*TemplateWriter)(nil)

// TemplateConfig selects the template to render. Exactly one of the
// three fields should be set; they are consulted in field order.
type TemplateConfig struct {
	// TemplatePath names a template file on disk.
	TemplatePath string

	// TemplateString holds the template text inline.
	TemplateString string

	// BuiltIn picks a bundled template: "csv" or "text-summary".
	BuiltIn string
}

var builtInTemplates = map[string]string{
	"csv": `Rule,Severity,Plugin,Asset,Line,Match
{{- range .Findings }}
{{ .Rule }},{{ .Severity }},{{ .Plugin }},{{ escapeCSV .Asset }},{{ .Line }},{{ escapeCSV .Match }}
{{- end }}`,

	"text-summary": `jshound Scan Summary
====================
Domain: {{ .Domain }}
Generated: {{ .Timestamp }}
Duration: {{ printf "%.2f" .Duration }}s

Pipeline:
  Subdomains: {{ .Subdomains }}
  JS Assets: {{ .Assets }}
  Downloaded: {{ .Downloaded }}

Findings: {{ .TotalFindings }}
{{ if gt .TotalFindings 0 }}
Findings by Severity:
{{- range $sev, $count := .BySeverity }}
  {{ severityIcon $sev }} {{ $sev | title }}: {{ $count }}
{{- end }}
{{ end }}`,
}

// TemplateWriter renders a scan as a single text document. Events are
// folded into scalar state as they arrive and the template executes
// once, on Close. Templates see the Sprig function set plus the
// helpers registered in templateFuncs.
type TemplateWriter struct {
	w    io.Writer
	tmpl *template.Template

	mu       sync.Mutex
	scanID   string
	domain   string
	findings []finding.Finding

	duration     float64
	subdomains   int
	assets       int
	downloaded   int
	ruleFailures int
}

// NewTemplateWriter parses the configured template up front so bad
// templates fail at construction rather than at the end of a scan.
func NewTemplateWriter(w io.Writer, config TemplateConfig) (*TemplateWriter, error) {
	text, err := templateSource(config)
	if err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}

	tmpl, err := template.New("render").Funcs(templateFuncs()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template parse error: parse output template: %w", err)
	}

	return &TemplateWriter{w: w, tmpl: tmpl}, nil
}

// templateSource resolves the template text from the config, trying
// the file path first, then the inline string, then the built-ins.
func templateSource(config TemplateConfig) (string, error) {
	if config.TemplatePath != "" {
		content, err := os.ReadFile(config.TemplatePath)
		if err != nil {
			return "", fmt.Errorf("failed to read template file: %w", err)
		}
		return string(content), nil
	}
	if config.TemplateString != "" {
		return config.TemplateString, nil
	}
	if config.BuiltIn != "" {
		content, ok := builtInTemplates[config.BuiltIn]
		if !ok {
			return "", fmt.Errorf("unknown built-in template: %s (available: csv, text-summary)", config.BuiltIn)
		}
		return content, nil
	}
	return "", fmt.Errorf("no template specified: set TemplatePath, TemplateString, or BuiltIn")
}

func templateFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["escapeCSV"] = tmplEscapeCSV
	funcs["escapeXML"] = tmplEscapeXML
	funcs["severityIcon"] = tmplSeverityIcon
	funcs["json"] = tmplToJSON
	funcs["prettyJSON"] = tmplPrettyJSON
	funcs["cweLink"] = tmplCweLink
	return funcs
}

// Write folds the event into the writer's accumulated state.
func (tw *TemplateWriter) Write(event events.Event) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.scanID == "" {
		tw.scanID = event.ScanID()
	}

	switch e := event.(type) {
	case *events.StartEvent:
		tw.domain = e.Domain
	case *events.FindingEvent:
		tw.findings = append(tw.findings, e.Finding)
	case *events.SummaryEvent:
		if tw.domain == "" {
			tw.domain = e.Domain
		}
		tw.duration = e.Timing.DurationSec
		tw.subdomains = e.Totals.Subdomains
		tw.assets = e.Totals.Assets
		tw.downloaded = e.Totals.Downloaded
		tw.ruleFailures = e.Totals.RuleFailures
	}
	return nil
}

// Flush does nothing; the document is rendered whole on Close.
func (tw *TemplateWriter) Flush() error { return nil }

// Close executes the template against the accumulated state and
// writes the result. Partial output is never emitted: execution runs
// against a buffer and only a clean render reaches the destination.
func (tw *TemplateWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	var buf bytes.Buffer
	if err := tw.tmpl.Execute(&buf, tw.snapshot()); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}
	if _, err := tw.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write error: %w", err)
	}

	if closer, ok := tw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent reports which event kinds feed the template state.
func (tw *TemplateWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeStart, events.EventTypeFinding, events.EventTypeSummary:
		return true
	default:
		return false
	}
}

// tmplData is the root object a template executes against.
type tmplData struct {
	ScanID    string
	Domain    string
	Timestamp string
	Duration  float64

	Findings      []finding.Finding
	TotalFindings int

	BySeverity      map[string]int
	ByPlugin        map[string]int
	HighestSeverity string

	Subdomains   int
	Assets       int
	Downloaded   int
	RuleFailures int
}

// snapshot derives the per-severity and per-plugin breakdowns from the
// buffered findings. Caller holds tw.mu.
func (tw *TemplateWriter) snapshot() *tmplData {
	data := &tmplData{
		ScanID:        tw.scanID,
		Domain:        tw.domain,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Duration:      tw.duration,
		Findings:      tw.findings,
		TotalFindings: len(tw.findings),
		BySeverity:    make(map[string]int),
		ByPlugin:      make(map[string]int),
		Subdomains:    tw.subdomains,
		Assets:        tw.assets,
		Downloaded:    tw.downloaded,
		RuleFailures:  tw.ruleFailures,
	}

	var worst finding.Severity
	for _, f := range tw.findings {
		data.BySeverity[string(f.Severity)]++
		if f.Plugin != "" {
			data.ByPlugin[f.Plugin]++
		}
		if f.Severity.Score() > worst.Score() {
			worst = f.Severity
		}
	}
	if worst != "" {
		data.HighestSeverity = string(worst)
	}

	return data
}

// tmplEscapeCSV quotes a CSV field when it carries a delimiter, quote,
// or line break; embedded quotes are doubled per RFC 4180.
func tmplEscapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// tmplEscapeXML escapes text for embedding in XML character data.
func tmplEscapeXML(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

var severityIcons = map[string]string{
	"critical": "🔴",
	"high":     "🟠",
	"medium":   "🟡",
	"low":      "🟢",
	"info":     "🔵",
}

func tmplSeverityIcon(severity string) string {
	if icon, ok := severityIcons[strings.ToLower(severity)]; ok {
		return icon
	}
	return "⚪"
}

func tmplToJSON(v interface{}) string {
	b, err := jsonutil.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func tmplPrettyJSON(v interface{}) string {
	b, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func tmplCweLink(id int) string {
	return fmt.Sprintf("https://cwe.mitre.org/data/definitions/%d.html", id)
}
