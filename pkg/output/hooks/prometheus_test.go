package hooks

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/output/events"
)

// --- Event factories ---

func hookStartEvent(domain string) *events.StartEvent {
	return &events.StartEvent{
		BaseEvent: events.NewBase(events.EventTypeStart, "scan-h1"),
		Domain:    domain,
		Config: events.ScanConfig{
			Sources:     []string{"crtsh"},
			Rules:       42,
			Concurrency: 10,
			TimeoutSec:  15,
		},
	}
}

func hookFindingEvent(sev finding.Severity) *events.FindingEvent {
	return &events.FindingEvent{
		BaseEvent: events.NewBase(events.EventTypeFinding, "scan-h1"),
		Finding: finding.Finding{
			Rule:     "aws-access-key-id",
			Plugin:   "regex",
			Severity: sev,
			Asset:    "https://cdn.example.com/app.js",
			Host:     "app.example.com",
			Line:     88,
			Match:    "AKIA************MPLE",
		},
	}
}

func hookAssetEvent(size int64) *events.AssetEvent {
	return &events.AssetEvent{
		BaseEvent: events.NewBase(events.EventTypeAsset, "scan-h1"),
		URL:       "https://cdn.example.com/app.js",
		Origin:    "https://app.example.com/",
		Size:      size,
	}
}

func hookStageEvent(stage events.Stage, count int) *events.StageEvent {
	return &events.StageEvent{
		BaseEvent:  events.NewBase(events.EventTypeStage, "scan-h1"),
		Stage:      stage,
		Count:      count,
		DurationMs: 1500,
	}
}

func hookSummaryEvent(findings int) *events.SummaryEvent {
	return &events.SummaryEvent{
		BaseEvent: events.NewBase(events.EventTypeSummary, "scan-h1"),
		Domain:    "example.com",
		Totals: events.SummaryTotals{
			Subdomains: 12,
			Assets:     34,
			Downloaded: 30,
			Findings:   findings,
		},
		Timing: events.SummaryTiming{DurationSec: 42.0},
	}
}

// scrapeMetrics fetches the metrics endpoint body.
func scrapeMetrics(t *testing.T, hook *PrometheusHook) string {
	t.Helper()
	resp, err := http.Get(hook.MetricsAddr())
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	return string(body)
}

// --- Tests ---

func TestPrometheusHookStartsServer(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{
		Port: 19090, // non-standard port for testing
		Path: "/metrics",
	})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	// Give the server time to start.
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(hook.MetricsAddr())
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestPrometheusHookDefaultOptions(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{
		Port: 19091,
	})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	if hook.opts.Path != "/metrics" {
		t.Errorf("expected default path '/metrics', got %q", hook.opts.Path)
	}
	if hook.opts.ReadTimeout != 5*time.Second {
		t.Errorf("expected default read timeout 5s, got %v", hook.opts.ReadTimeout)
	}
	if hook.opts.WriteTimeout != 10*time.Second {
		t.Errorf("expected default write timeout 10s, got %v", hook.opts.WriteTimeout)
	}
}

func TestPrometheusHookRecordsFindings(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{Port: 19092})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()
	time.Sleep(100 * time.Millisecond)

	ctx := context.Background()
	for _, ev := range []events.Event{
		hookFindingEvent(finding.Critical),
		hookFindingEvent(finding.Critical),
		hookFindingEvent(finding.Medium),
		hookAssetEvent(52100),
	} {
		if err := hook.OnEvent(ctx, ev); err != nil {
			t.Fatalf("OnEvent: %v", err)
		}
	}

	body := scrapeMetrics(t, hook)
	if !strings.Contains(body, "jshound_findings_total") {
		t.Error("metrics missing jshound_findings_total")
	}
	if !strings.Contains(body, `severity="critical"`) {
		t.Error("metrics missing critical severity label")
	}
	if !strings.Contains(body, `host="app.example.com"`) {
		t.Error("metrics missing host label from finding")
	}
	if !strings.Contains(body, "jshound_assets_total") {
		t.Error("metrics missing jshound_assets_total")
	}
	if !strings.Contains(body, `outcome="stored"`) {
		t.Error("metrics missing stored outcome label")
	}
	if !strings.Contains(body, "jshound_asset_size_bytes_bucket") {
		t.Error("metrics missing asset size histogram")
	}
}

func TestPrometheusHookStageAndSummary(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{Port: 19093})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()
	time.Sleep(100 * time.Millisecond)

	ctx := context.Background()
	for _, ev := range []events.Event{
		hookStartEvent("example.com"),
		hookStageEvent(events.StageEnumerate, 12),
		hookStageEvent(events.StageDownload, 30),
		hookSummaryEvent(3),
	} {
		if err := hook.OnEvent(ctx, ev); err != nil {
			t.Fatalf("OnEvent: %v", err)
		}
	}

	body := scrapeMetrics(t, hook)
	if !strings.Contains(body, "jshound_stage_items") {
		t.Error("metrics missing jshound_stage_items")
	}
	if !strings.Contains(body, `domain="example.com"`) {
		t.Error("stage metrics missing domain label from start event")
	}
	if !strings.Contains(body, `stage="enumerate"`) {
		t.Error("metrics missing enumerate stage label")
	}
	if !strings.Contains(body, "jshound_scan_duration_seconds") {
		t.Error("metrics missing jshound_scan_duration_seconds")
	}
}

func TestPrometheusHookCloseIsIdempotent(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{Port: 19094})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}

	if err := hook.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := hook.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	// Events after close are dropped without error.
	if err := hook.OnEvent(context.Background(), hookFindingEvent(finding.High)); err != nil {
		t.Errorf("OnEvent after close: %v", err)
	}
}

func TestPrometheusHookEventTypes(t *testing.T) {
	hook, err := NewPrometheusHook(PrometheusOptions{Port: 19095})
	if err != nil {
		t.Fatalf("failed to create hook: %v", err)
	}
	defer hook.Close()

	types := hook.EventTypes()
	want := map[events.EventType]bool{
		events.EventTypeStart:   false,
		events.EventTypeStage:   false,
		events.EventTypeAsset:   false,
		events.EventTypeFinding: false,
		events.EventTypeError:   false,
		events.EventTypeSummary: false,
	}
	for _, et := range types {
		if _, ok := want[et]; !ok {
			t.Errorf("unexpected event type %s", et)
			continue
		}
		want[et] = true
	}
	for et, seen := range want {
		if !seen {
			t.Errorf("missing event type %s", et)
		}
	}
}

func TestExtractHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://cdn.example.com/app.js", "cdn.example.com"},
		{"http://example.com", "example.com"},
		{"https://example.com:8443/path?q=1", "example.com:8443"},
		{"example.com/app.js", "example.com"},
		{"", "unknown"},
		{"https://", "unknown"},
	}
	for _, tt := range tests {
		if got := extractHost(tt.in); got != tt.want {
			t.Errorf("extractHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
