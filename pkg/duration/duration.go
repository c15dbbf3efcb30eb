// Package duration is the single home for time constants. A timeout or
// interval written as a literal at its use site drifts from its
// siblings over time; naming it here keeps the whole pipeline on one
// clock.
//
//	ctx, cancel := context.WithTimeout(ctx, duration.ContextShort)
//	Timeout: duration.HTTPDownload,
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================
//
// Whole-request budgets per fetch kind. pkg/httpclient presets use the
// same values; they live here so callers get them without that import.
// ============================================================================

const (
	// HTTPProbing budgets a liveness check on a subdomain (5s)
	HTTPProbing = 5 * time.Second

	// HTTPDiscovery budgets a page fetch plus script extraction (15s)
	HTTPDiscovery = 15 * time.Second

	// HTTPDownload budgets a JavaScript asset pull (30s), the default
	HTTPDownload = 30 * time.Second

	// HTTPOSINT budgets an external enumeration API call; crt.sh can
	// take most of a minute on large domains (60s)
	HTTPOSINT = 60 * time.Second
)

// ============================================================================
// OPERATION DEADLINES
// ============================================================================
//
// For context.WithTimeout around multi-request work.
// ============================================================================

const (
	// ContextShort bounds a quick operation (30s)
	ContextShort = 30 * time.Second

	// ContextMedium bounds a standard operation (5min)
	ContextMedium = 5 * time.Minute

	// ContextLong bounds a full pipeline stage (15min)
	ContextLong = 15 * time.Minute

	// ContextMax bounds a complete scan run (30min)
	ContextMax = 30 * time.Minute
)

// ============================================================================
// PROGRESS INTERVALS
// ============================================================================

const (
	// StreamFast refreshes real-time displays (1s)
	StreamFast = 1 * time.Second

	// StreamStd paces normal progress reporting (3s)
	StreamStd = 3 * time.Second

	// StreamSlow paces low-frequency updates (5s)
	StreamSlow = 5 * time.Second
)

// ============================================================================
// HEADLESS BROWSER
// ============================================================================
//
// Budgets for chromedp sessions.
// ============================================================================

const (
	// BrowserPage bounds a page load (30s)
	BrowserPage = 30 * time.Second

	// BrowserIdle detects quiet between actions (2s)
	BrowserIdle = 2 * time.Second

	// BrowserSettle is how long instrumentation waits after load for
	// lazy script injection (5s)
	BrowserSettle = 5 * time.Second
)

// ============================================================================
// RETRY PACING
// ============================================================================

const (
	// RetryFast paces quick retries (1s)
	RetryFast = 1 * time.Second

	// RetryStd paces standard retries (5s)
	RetryStd = 5 * time.Second

	// SourceCooldown separates paged OSINT requests (500ms)
	SourceCooldown = 500 * time.Millisecond
)

// ============================================================================
// LATENCY THRESHOLDS
// ============================================================================
//
// For flagging slow endpoints in scan summaries.
// ============================================================================

const (
	// SlowResponse marks a response worth flagging (5s)
	SlowResponse = 5 * time.Second

	// VerySlowResponse marks a response worth a warning (10s)
	VerySlowResponse = 10 * time.Second
)

// ============================================================================
// TRANSPORT
// ============================================================================
//
// Low-level network knobs shared by every client the factory builds.
// ============================================================================

const (
	// DialTimeout bounds TCP connection establishment (10s)
	DialTimeout = 10 * time.Second

	// KeepAlive sets the TCP keep-alive interval (30s)
	KeepAlive = 30 * time.Second

	// IdleConnTimeout evicts pooled idle connections (90s)
	IdleConnTimeout = 90 * time.Second

	// TLSHandshake bounds the TLS handshake (10s)
	TLSHandshake = 10 * time.Second

	// DNSTimeout bounds a single resolution (3s)
	DNSTimeout = 3 * time.Second
)

// ============================================================================
// EXTERNAL TOOLS
// ============================================================================

const (
	// ToolRun bounds one external enumeration helper invocation (2min)
	ToolRun = 2 * time.Minute

	// ToolKillGrace separates SIGTERM from SIGKILL (5s)
	ToolKillGrace = 5 * time.Second
)

// ============================================================================
// OBSERVABILITY
// ============================================================================

const (
	// MetricsRead bounds request reads on the metrics endpoint (5s)
	MetricsRead = 5 * time.Second

	// MetricsWrite bounds scrape responses (10s)
	MetricsWrite = 10 * time.Second

	// ExporterShutdown bounds metrics server and trace exporter
	// shutdown (5s)
	ExporterShutdown = 5 * time.Second
)
