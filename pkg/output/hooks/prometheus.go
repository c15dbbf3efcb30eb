// Package hooks provides event hooks for external integrations.
//
// Hooks receive scan events from the dispatcher and push them into
// monitoring systems. Unlike writers they produce no report artifact;
// a hook failure never affects the scan itself.
package hooks

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jshound/jshound/pkg/duration"
	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*PrometheusHook)(nil)

// PrometheusHook exposes scan metrics for Prometheus scraping.
// It starts an HTTP server that serves metrics at the configured path.
// Metrics include counters for findings/assets/errors, gauges for
// stage progress and scan duration, and a histogram for downloaded
// asset sizes. Useful when jshound runs on a schedule and exposure
// trends should land on a dashboard.
type PrometheusHook struct {
	server   *http.Server
	registry *prometheus.Registry
	opts     PrometheusOptions

	// Counters
	findingsTotal *prometheus.CounterVec
	assetsTotal   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec

	// Gauges
	stageItems          *prometheus.GaugeVec
	stageDurationSecs   *prometheus.GaugeVec
	scanDurationSeconds *prometheus.GaugeVec

	// Histograms
	assetSizeBytes *prometheus.HistogramVec

	mu     sync.Mutex
	domain string
	closed bool
}

// PrometheusOptions configures the Prometheus hook behavior.
type PrometheusOptions struct {
	// Port for the metrics server (default: 9090).
	Port int

	// Path for the metrics endpoint (default: "/metrics").
	Path string

	// ReadTimeout for the HTTP server (default: 5s).
	ReadTimeout time.Duration

	// WriteTimeout for the HTTP server (default: 10s).
	WriteTimeout time.Duration
}

// NewPrometheusHook creates a Prometheus hook that exposes metrics at
// the configured endpoint. The metrics server starts immediately and
// runs until Close() is called.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Port == 0 {
		opts.Port = 9090
	}
	if opts.Path == "" {
		opts.Path = "/metrics"
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = duration.MetricsRead
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = duration.MetricsWrite
	}

	// Custom registry so the scan metrics don't mix with the default
	// Go runtime collectors.
	hook := &PrometheusHook{
		registry: prometheus.NewRegistry(),
		opts:     opts,
	}

	if err := hook.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := hook.startServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	return hook, nil
}

// initMetrics creates and registers all Prometheus metrics.
func (h *PrometheusHook) initMetrics() error {
	h.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jshound_findings_total",
			Help: "Total number of secrets detected in JavaScript assets",
		},
		[]string{"host", "severity", "plugin"},
	)

	h.assetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jshound_assets_total",
			Help: "Total number of discovered script assets by download outcome",
		},
		[]string{"host", "outcome"},
	)

	h.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jshound_errors_total",
			Help: "Total number of errors during scanning",
		},
		[]string{"stage"},
	)

	h.stageItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jshound_stage_items",
			Help: "Items produced by each pipeline stage in the last scan",
		},
		[]string{"domain", "stage"},
	)

	h.stageDurationSecs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jshound_stage_duration_seconds",
			Help: "Duration of each pipeline stage in the last scan",
		},
		[]string{"domain", "stage"},
	)

	h.scanDurationSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jshound_scan_duration_seconds",
			Help: "Total scan duration in seconds",
		},
		[]string{"domain"},
	)

	h.assetSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jshound_asset_size_bytes",
			Help:    "Size distribution of downloaded script assets",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"host"},
	)

	collectors := []prometheus.Collector{
		h.findingsTotal,
		h.assetsTotal,
		h.errorsTotal,
		h.stageItems,
		h.stageDurationSecs,
		h.scanDurationSeconds,
		h.assetSizeBytes,
	}
	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// startServer starts the HTTP server for metrics.
func (h *PrometheusHook) startServer() error {
	mux := http.NewServeMux()
	mux.Handle(h.opts.Path, promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.opts.Port),
		Handler:      mux,
		ReadTimeout:  h.opts.ReadTimeout,
		WriteTimeout: h.opts.WriteTimeout,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("prometheus: metrics server error: %v", err)
		}
	}()

	return nil
}

// OnEvent processes events and updates Prometheus metrics.
func (h *PrometheusHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.StartEvent:
		h.domain = e.Domain
	case *events.AssetEvent:
		h.handleAsset(e)
	case *events.FindingEvent:
		h.handleFinding(e)
	case *events.ErrorEvent:
		h.errorsTotal.WithLabelValues(h.stageLabel(e.Stage)).Inc()
	case *events.StageEvent:
		h.handleStage(e)
	case *events.SummaryEvent:
		h.scanDurationSeconds.WithLabelValues(h.domainLabel()).Set(e.Timing.DurationSec)
	}

	return nil
}

// handleAsset counts download outcomes and records size distribution.
func (h *PrometheusHook) handleAsset(asset *events.AssetEvent) {
	host := extractHost(asset.URL)
	h.assetsTotal.WithLabelValues(host, asset.Outcome()).Inc()

	if asset.Size > 0 {
		h.assetSizeBytes.WithLabelValues(host).Observe(float64(asset.Size))
	}
}

// handleFinding counts detected secrets by severity and plugin.
func (h *PrometheusHook) handleFinding(fe *events.FindingEvent) {
	host := fe.Finding.Host
	if host == "" {
		host = extractHost(fe.Finding.Asset)
	}
	plugin := fe.Finding.Plugin
	if plugin == "" {
		plugin = "unknown"
	}
	h.findingsTotal.WithLabelValues(host, string(fe.Finding.Severity), plugin).Inc()
}

// handleStage records per-stage throughput and timing.
func (h *PrometheusHook) handleStage(stage *events.StageEvent) {
	domain := h.domainLabel()
	h.stageItems.WithLabelValues(domain, string(stage.Stage)).Set(float64(stage.Count))
	h.stageDurationSecs.WithLabelValues(domain, string(stage.Stage)).Set(stage.DurationMs / 1000.0)
	if stage.Errors > 0 {
		h.errorsTotal.WithLabelValues(string(stage.Stage)).Add(float64(stage.Errors))
	}
}

func (h *PrometheusHook) domainLabel() string {
	if h.domain == "" {
		return "unknown"
	}
	return h.domain
}

func (h *PrometheusHook) stageLabel(s events.Stage) string {
	if s == "" {
		return "scan"
	}
	return string(s)
}

// EventTypes returns the event types this hook handles.
func (h *PrometheusHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeStage,
		events.EventTypeAsset,
		events.EventTypeFinding,
		events.EventTypeError,
		events.EventTypeSummary,
	}
}

// Close shuts down the metrics server and releases resources.
func (h *PrometheusHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), duration.ExporterShutdown)
		defer cancel()
		return h.server.Shutdown(ctx)
	}

	return nil
}

// MetricsAddr returns the address where metrics are served.
// Useful for testing and logging.
func (h *PrometheusHook) MetricsAddr() string {
	return fmt.Sprintf("http://localhost:%d%s", h.opts.Port, h.opts.Path)
}

// extractHost extracts the host from a URL for use as a metric label.
// Returns "unknown" if the URL is empty or malformed.
func extractHost(rawURL string) string {
	if rawURL == "" {
		return "unknown"
	}

	rest := rawURL
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" {
		return "unknown"
	}
	return rest
}
