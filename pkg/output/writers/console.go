// Package writers provides output writers for various formats.
//
// This package contains implementations of the dispatcher.Writer
// interface: console lines for humans, JSON/JSONL/SARIF for machines
// and CI/CD, templates for custom formats, and PDF for reports.
package writers

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
	"github.com/jshound/jshound/pkg/ui"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*ConsoleWriter)(nil)

// ConsoleWriter renders events as human-readable terminal lines.
// Finding lines go to the configured writer (stdout by default, so
// results survive a pipe); stage progress, asset lines, and the final
// summary render to stderr through pkg/ui.
type ConsoleWriter struct {
	out  io.Writer
	mu   sync.Mutex
	opts ConsoleOptions
}

// ConsoleOptions configures the console writer behavior.
type ConsoleOptions struct {
	// Verbose also prints per-asset download outcomes.
	Verbose bool

	// NoSummary suppresses the closing summary box.
	NoSummary bool
}

// NewConsoleWriter creates a console writer. A nil out defaults to
// stdout.
func NewConsoleWriter(out io.Writer, opts ConsoleOptions) *ConsoleWriter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleWriter{out: out, opts: opts}
}

// Write renders one event. Unknown event types are ignored.
func (cw *ConsoleWriter) Write(event events.Event) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	switch e := event.(type) {
	case *events.StartEvent:
		ui.PrintInfo(fmt.Sprintf("scanning %s with %d rules across %d sources",
			e.Domain, e.Config.Rules, len(e.Config.Sources)))

	case *events.StageEvent:
		ui.PrintStage(string(e.Stage), stageSummary(e))

	case *events.AssetEvent:
		if cw.opts.Verbose {
			ui.PrintAsset(e.Origin, e.URL, e.Outcome())
		}

	case *events.FindingEvent:
		fmt.Fprintln(cw.out, ui.FormatFinding(e.Finding))

	case *events.ErrorEvent:
		if e.Fatal {
			ui.PrintError(e.Message)
		} else if cw.opts.Verbose {
			ui.PrintWarning(e.Message)
		}

	case *events.SummaryEvent:
		if !cw.opts.NoSummary {
			ui.PrintSummary(ui.Summary{
				Domain:       e.Domain,
				Subdomains:   e.Totals.Subdomains,
				Assets:       e.Totals.Assets,
				Downloaded:   e.Totals.Downloaded,
				Duplicates:   e.Totals.Duplicates,
				Failed:       e.Totals.FailedAssets,
				Findings:     e.Totals.Findings,
				RuleFailures: e.Totals.RuleFailures,
				BySeverity:   e.BySeverity,
				Duration:     time.Duration(e.Timing.DurationSec * float64(time.Second)),
			})
		}
	}

	return nil
}

// stageSummary phrases a stage completion for the progress line.
func stageSummary(e *events.StageEvent) string {
	noun := map[events.Stage]string{
		events.StageEnumerate: "subdomains",
		events.StageDiscover:  "script assets",
		events.StageDownload:  "files stored",
		events.StageDetect:    "findings",
	}[e.Stage]
	if noun == "" {
		noun = "items"
	}

	s := fmt.Sprintf("%d %s in %s", e.Count, noun,
		ui.FormatDuration(time.Duration(e.DurationMs*float64(time.Millisecond))))
	if e.Errors > 0 {
		s += fmt.Sprintf(" (%d errors)", e.Errors)
	}
	return s
}

// Flush is a no-op; console lines are unbuffered.
func (cw *ConsoleWriter) Flush() error { return nil }

// Close is a no-op; the console writer does not own its sink.
func (cw *ConsoleWriter) Close() error { return nil }

// SupportsEvent returns true for every event the console can render.
func (cw *ConsoleWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeStart, events.EventTypeStage, events.EventTypeAsset,
		events.EventTypeFinding, events.EventTypeError, events.EventTypeSummary:
		return true
	default:
		return false
	}
}
