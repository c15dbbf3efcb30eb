package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/duration"
	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
)

var _ dispatcher.Hook = (*OTelHook)(nil)

// OTelHook maps a scan onto a single OTLP trace: one root span per
// scan, with stages and findings attached as span events. A scan
// launched from CI therefore lands in the same trace backend as the
// job that ran it.
type OTelHook struct {
	opts     OTelOptions
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer

	mu       sync.Mutex
	rootSpan trace.Span
	scanID   string
	closed   bool
}

// OTelOptions configures the trace exporter. Zero values fall back to
// a plaintext collector on localhost:4317 identifying as jshound.
type OTelOptions struct {
	// Endpoint is the host:port of the OTLP/gRPC collector.
	Endpoint string

	// ServiceName overrides the service.name resource attribute.
	ServiceName string

	// Insecure skips TLS on the collector connection.
	Insecure bool

	// Headers are attached to every export call, typically for auth.
	Headers map[string]string

	// ShutdownTimeout bounds the final flush on Close.
	ShutdownTimeout time.Duration

	// ConnectionTimeout bounds the initial dial to the collector.
	ConnectionTimeout time.Duration
}

func (o OTelOptions) withDefaults() OTelOptions {
	if o.ServiceName == "" {
		o.ServiceName = "jshound"
	}
	if o.Endpoint == "" {
		o.Endpoint = "localhost:4317"
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = duration.ExporterShutdown
	}
	if o.ConnectionTimeout == 0 {
		o.ConnectionTimeout = duration.DialTimeout
	}
	return o
}

// newTraceExporter dials the collector described by opts. The batcher
// buffers on top of this, so a slow collector never stalls a scan.
func newTraceExporter(opts OTelOptions) (*otlptrace.Exporter, error) {
	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()
	return otlptracegrpc.New(ctx, exporterOpts...)
}

// NewOTelHook wires a tracer provider to the configured collector and
// installs it as the process-global provider.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	opts = opts.withDefaults()

	exporter, err := newTraceExporter(opts)
	if err != nil {
		return nil, err
	}

	// A fresh resource instead of merging with resource.Default: the
	// merge fails on schema URL conflicts between semconv versions.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "scanner"),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return &OTelHook{
		opts:     opts,
		provider: provider,
		tracer:   provider.Tracer("jshound/scan"),
	}, nil
}

// OnEvent folds a pipeline event into the scan trace.
func (h *OTelHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.StartEvent:
		h.beginScan(ctx, e)
	case *events.StageEvent:
		h.recordStage(e)
	case *events.FindingEvent:
		h.recordFinding(e)
	case *events.SummaryEvent:
		h.recordSummary(e)
	case *events.CompleteEvent:
		h.endScan(e)
	}
	return nil
}

// beginScan opens the root span carrying the scan configuration.
func (h *OTelHook) beginScan(ctx context.Context, start *events.StartEvent) {
	h.scanID = start.ScanID()

	_, span := h.tracer.Start(ctx, "jshound.scan",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("scan_id", h.scanID),
			attribute.String("domain", start.Domain),
			attribute.StringSlice("sources", start.Config.Sources),
			attribute.StringSlice("plugins", start.Config.Plugins),
			attribute.Int("rules", start.Config.Rules),
			attribute.Int("concurrency", start.Config.Concurrency),
			attribute.Int("timeout_sec", start.Config.TimeoutSec),
		),
	)
	span.AddEvent("scan_started", trace.WithAttributes(
		attribute.String("domain", start.Domain),
	))
	h.rootSpan = span
}

func (h *OTelHook) recordStage(stage *events.StageEvent) {
	if h.rootSpan == nil {
		return
	}
	h.rootSpan.AddEvent("stage_completed", trace.WithAttributes(
		attribute.String("stage", string(stage.Stage)),
		attribute.Int("items", stage.Count),
		attribute.Int("errors", stage.Errors),
		attribute.Float64("duration_ms", stage.DurationMs),
	))
}

// recordFinding attaches a detection as a span event. The attributes
// carry the redacted match only; raw secret material never leaves the
// scanner.
func (h *OTelHook) recordFinding(fe *events.FindingEvent) {
	if h.rootSpan == nil {
		return
	}
	f := fe.Finding

	h.rootSpan.AddEvent("secret_detected", trace.WithAttributes(
		attribute.String("scan_id", h.scanID),
		attribute.String("rule", f.Rule),
		attribute.String("plugin", f.Plugin),
		attribute.String("severity", string(f.Severity)),
		attribute.String("asset", f.Asset),
		attribute.Int("line", f.Line),
	))
	h.rootSpan.SetStatus(codes.Error, "exposed secrets detected")
}

// recordSummary stamps the pipeline totals onto the root span and
// settles its final status.
func (h *OTelHook) recordSummary(summary *events.SummaryEvent) {
	if h.rootSpan == nil {
		return
	}

	h.rootSpan.SetAttributes(
		attribute.String("domain", summary.Domain),
		attribute.Int("totals.subdomains", summary.Totals.Subdomains),
		attribute.Int("totals.assets", summary.Totals.Assets),
		attribute.Int("totals.downloaded", summary.Totals.Downloaded),
		attribute.Int("totals.duplicates", summary.Totals.Duplicates),
		attribute.Int("totals.failed_assets", summary.Totals.FailedAssets),
		attribute.Int("totals.findings", summary.Totals.Findings),
		attribute.Int("totals.rule_failures", summary.Totals.RuleFailures),
		attribute.Float64("timing.duration_sec", summary.Timing.DurationSec),
		attribute.Int("exit_code", summary.ExitCode),
	)
	h.rootSpan.AddEvent("scan_summary", trace.WithAttributes(
		attribute.Int("subdomains", summary.Totals.Subdomains),
		attribute.Int("assets", summary.Totals.Assets),
		attribute.Int("findings", summary.Totals.Findings),
		attribute.Float64("duration_sec", summary.Timing.DurationSec),
	))

	if summary.Totals.Findings > 0 {
		h.rootSpan.SetStatus(codes.Error, "scan completed with exposed secrets")
	} else {
		h.rootSpan.SetStatus(codes.Ok, "scan completed clean")
	}
}

// endScan closes the root span once the pipeline reports completion.
func (h *OTelHook) endScan(complete *events.CompleteEvent) {
	if h.rootSpan == nil {
		return
	}

	h.rootSpan.AddEvent("scan_completed", trace.WithAttributes(
		attribute.Bool("success", complete.Success),
		attribute.Int("exit_code", complete.ExitCode),
	))
	if !complete.Success {
		h.rootSpan.SetStatus(codes.Error, "scan aborted")
	}

	h.rootSpan.End()
	h.rootSpan = nil
}

// EventTypes subscribes to the scan lifecycle; per-asset events are
// too chatty for a trace backend.
func (h *OTelHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeStage,
		events.EventTypeFinding,
		events.EventTypeSummary,
		events.EventTypeComplete,
	}
}

// Close ends any open span and flushes the batcher. Subsequent calls
// and events are no-ops.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.rootSpan != nil {
		h.rootSpan.End()
		h.rootSpan = nil
	}

	if h.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	if err := h.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel: shutdown tracer provider: %w", err)
	}
	return nil
}

// Endpoint reports the collector address in use.
func (h *OTelHook) Endpoint() string { return h.opts.Endpoint }

// ServiceName reports the effective service.name.
func (h *OTelHook) ServiceName() string { return h.opts.ServiceName }
