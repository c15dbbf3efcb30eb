package writers

import (
	"io"
	"sync"

	"github.com/jshound/jshound/pkg/jsonutil"
	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
)

var _ dispatcher.Writer = (*JSONLWriter)(nil)

// JSONLWriter streams events as JSON Lines, one object per line,
// flushed as they arrive. Suited for piping into jq or log shippers
// while a scan is still running.
type JSONLWriter struct {
	writer io.Writer
	mu     sync.Mutex
	closed bool
	opts   JSONLOptions
}

// JSONLOptions configures the JSONL writer.
type JSONLOptions struct {
	// OnlyFindings drops everything except finding events, giving a
	// clean one-secret-per-line feed.
	OnlyFindings bool
}

// NewJSONLWriter creates a JSON Lines writer targeting w.
func NewJSONLWriter(w io.Writer, opts JSONLOptions) *JSONLWriter {
	return &JSONLWriter{writer: w, opts: opts}
}

// Write emits the event as a single JSON line.
func (jw *JSONLWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return nil
	}
	if jw.opts.OnlyFindings && event.EventType() != events.EventTypeFinding {
		return nil
	}

	// json.Encoder appends the newline delimiter itself.
	return jsonutil.NewStreamEncoder(jw.writer).Encode(event)
}

// Flush is a no-op; every line is written eagerly.
func (jw *JSONLWriter) Flush() error { return nil }

// Close marks the writer closed. The underlying sink is owned by the
// caller.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.closed = true
	return nil
}

// SupportsEvent accepts all event types; OnlyFindings filtering
// happens in Write so the option can change per run without touching
// dispatcher routing.
func (jw *JSONLWriter) SupportsEvent(eventType events.EventType) bool {
	if jw.opts.OnlyFindings {
		return eventType == events.EventTypeFinding
	}
	return true
}
