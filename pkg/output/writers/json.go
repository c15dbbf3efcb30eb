package writers

import (
	"io"
	"sync"
	"time"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/jsonutil"
	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
)

var _ dispatcher.Writer = (*JSONWriter)(nil)

// JSONWriter accumulates scan events and emits a single report
// document on Close. The document is stable for machine consumption.
// For a line-per-event stream use JSONLWriter instead.
type JSONWriter struct {
	writer io.Writer
	mu     sync.Mutex
	closed bool
	opts   JSONOptions

	scan     reportScan
	stats    reportStats
	findings []finding.Finding
	assets   []reportAsset
	errors   []reportError
}

// JSONOptions configures the JSON report writer.
type JSONOptions struct {
	// IncludeAssets adds the full asset inventory to the report.
	IncludeAssets bool

	// Compact disables indentation.
	Compact bool
}

// jsonReport is the envelope written on Close.
type jsonReport struct {
	Scan     reportScan        `json:"scan"`
	Stats    reportStats       `json:"stats"`
	Findings []finding.Finding `json:"findings"`
	Assets   []reportAsset     `json:"assets,omitempty"`
	Errors   []reportError     `json:"errors,omitempty"`
}

type reportScan struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`
	Version     string    `json:"version"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationSec float64   `json:"duration_sec"`
}

type reportStats struct {
	Subdomains   int            `json:"subdomains"`
	Assets       int            `json:"assets"`
	Downloaded   int            `json:"downloaded"`
	Duplicates   int            `json:"duplicates"`
	FailedAssets int            `json:"failed_assets"`
	Findings     int            `json:"findings"`
	RuleFailures int            `json:"rule_failures"`
	BySeverity   map[string]int `json:"by_severity,omitempty"`
	ByPlugin     map[string]int `json:"by_plugin,omitempty"`
}

type reportAsset struct {
	URL     string `json:"url"`
	Origin  string `json:"origin,omitempty"`
	Source  string `json:"source,omitempty"`
	Path    string `json:"path,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Outcome string `json:"outcome"`
}

type reportError struct {
	Stage   string `json:"stage,omitempty"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// NewJSONWriter creates a JSON report writer targeting w.
func NewJSONWriter(w io.Writer, opts JSONOptions) *JSONWriter {
	return &JSONWriter{
		writer: w,
		opts:   opts,
		scan:   reportScan{Version: defaults.Version},
	}
}

// Write folds one event into the pending report.
func (jw *JSONWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.StartEvent:
		jw.scan.ID = e.ScanID()
		jw.scan.Domain = e.Domain
		jw.scan.StartedAt = e.Timestamp()

	case *events.FindingEvent:
		jw.findings = append(jw.findings, e.Finding)

	case *events.AssetEvent:
		if jw.opts.IncludeAssets {
			jw.assets = append(jw.assets, reportAsset{
				URL:     e.URL,
				Origin:  e.Origin,
				Source:  e.Source,
				Path:    e.Path,
				Size:    e.Size,
				Outcome: e.Outcome(),
			})
		}

	case *events.ErrorEvent:
		jw.errors = append(jw.errors, reportError{
			Stage:   string(e.Stage),
			Target:  e.Target,
			Message: e.Message,
		})

	case *events.SummaryEvent:
		if jw.scan.Domain == "" {
			jw.scan.Domain = e.Domain
		}
		if jw.scan.ID == "" {
			jw.scan.ID = e.ScanID()
		}
		jw.scan.StartedAt = e.Timing.StartedAt
		jw.scan.CompletedAt = e.Timing.CompletedAt
		jw.scan.DurationSec = e.Timing.DurationSec
		jw.stats = reportStats{
			Subdomains:   e.Totals.Subdomains,
			Assets:       e.Totals.Assets,
			Downloaded:   e.Totals.Downloaded,
			Duplicates:   e.Totals.Duplicates,
			FailedAssets: e.Totals.FailedAssets,
			Findings:     e.Totals.Findings,
			RuleFailures: e.Totals.RuleFailures,
			BySeverity:   e.BySeverity,
			ByPlugin:     e.ByPlugin,
		}
	}

	return nil
}

// Flush is a no-op; the report is only complete at Close.
func (jw *JSONWriter) Flush() error { return nil }

// Close assembles and writes the report document. If the underlying
// writer implements io.Closer, it is closed afterwards.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return nil
	}
	jw.closed = true

	report := jsonReport{
		Scan:     jw.scan,
		Stats:    jw.stats,
		Findings: jw.findings,
		Assets:   jw.assets,
		Errors:   jw.errors,
	}
	if report.Findings == nil {
		report.Findings = []finding.Finding{}
	}
	if report.Stats.Findings == 0 {
		report.Stats.Findings = len(report.Findings)
	}

	enc := jsonutil.NewStreamEncoder(jw.writer)
	if !jw.opts.Compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		return err
	}

	if closer, ok := jw.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent reports which events contribute to the document.
func (jw *JSONWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeStart, events.EventTypeAsset, events.EventTypeFinding,
		events.EventTypeError, events.EventTypeSummary:
		return true
	default:
		return false
	}
}
