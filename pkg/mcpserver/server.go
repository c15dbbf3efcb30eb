package mcpserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/jsonutil"
)

// The SDK types LoggingLevel as a bare string with no exported
// constants; naming the two levels we emit keeps call sites typed.
const (
	logInfo    mcp.LoggingLevel = "info"
	logWarning mcp.LoggingLevel = "warning"
)

// Config holds MCP server configuration.
type Config struct {
	// OutputDir receives scan artifacts: the subdomain lists and the
	// downloaded scripts. Empty means the standard output directory.
	OutputDir string

	// SecurityTrailsKey enables the SecurityTrails enumeration source
	// for every tool that enumerates.
	SecurityTrailsKey string
}

// Server exposes jshound's recon pipeline over MCP: stdio for IDE
// integrations, streamable HTTP for remote deployments.
type Server struct {
	mcp    *mcp.Server
	config *Config
	ready  atomic.Bool
}

// New builds the server with every tool, resource, and prompt
// registered.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}

	s := &Server{
		config: cfg,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "jshound",
			Title:   "jshound JavaScript Secret Recon",
			Version: defaults.Version,
		}, &mcp.ServerOptions{
			Instructions: serverInstructions,
		}),
	}

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// MCPServer exposes the inner server so tests can connect over an
// in-memory transport.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// MarkReady flips the health endpoint from starting to ok.
func (s *Server) MarkReady() { s.ready.Store(true) }

// IsReady reports whether the server accepts traffic.
func (s *Server) IsReady() bool { return s.ready.Load() }

// RunStdio serves MCP over stdin/stdout until the context ends.
func (s *Server) RunStdio(ctx context.Context) error {
	s.MarkReady()
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

type middleware func(http.Handler) http.Handler

func chain(h http.Handler, wrappers ...middleware) http.Handler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		h = wrappers[i](h)
	}
	return h
}

// HTTPHandler assembles the remote-deployment handler: streamable MCP
// on /mcp and the root, plus /health for orchestrator probes.
func (s *Server) HTTPHandler() http.Handler {
	streamable := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{Stateless: false},
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/mcp", streamable)
	mux.Handle("/", streamable)

	return chain(mux, cors, recoverPanics, hardenHeaders)
}

type healthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// handleHealth answers readiness probes: 503 while starting, 200 once
// MarkReady has run.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	status := healthStatus{Status: "ok", Service: "jshound-mcp"}
	code := http.StatusOK
	if !s.IsReady() {
		status.Status = "starting"
		code = http.StatusServiceUnavailable
	}

	body, err := jsonutil.Marshal(status)
	if err != nil {
		http.Error(w, "health encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// cors reflects the Origin for browser-based MCP clients. Requests
// without an Origin skip the headers entirely: "*" combined with
// Allow-Credentials violates the Fetch specification.
func cors(next http.Handler) http.Handler {
	allowHeaders := strings.Join([]string{
		"Content-Type",
		"Authorization",
		"Mcp-Session-Id",
		"MCP-Protocol-Version",
		"Last-Event-ID",
		"Accept",
	}, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Vary on every response so caches never hand a CORS-decorated
		// response to a non-browser client or the reverse.
		w.Header().Add("Vary", "Origin")

		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id, MCP-Protocol-Version")
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanics turns a handler panic into a 500 instead of taking the
// process down mid-scan.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic in HTTP handler: %v\n%s", err, debug.Stack())

				// If headers already went out, WriteHeader is a no-op
				// and this is best effort.
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func hardenHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// notifyProgress sends a progress notification when the client asked
// for one by including a progress token. Delivery is advisory; a
// failed notification never fails the tool call.
func notifyProgress(ctx context.Context, req *mcp.CallToolRequest, progress, total float64, message string) {
	token := req.Params.GetProgressToken()
	if token == nil || req.Session == nil {
		return
	}
	_ = req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

// logToSession forwards a log line to the connected client, also
// advisory.
func logToSession(ctx context.Context, req *mcp.CallToolRequest, level mcp.LoggingLevel, data any) {
	if req.Session == nil {
		return
	}
	_ = req.Session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: "jshound",
		Data:   data,
	})
}

// textResult wraps text in a single-content successful result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// jsonResult renders v as indented JSON in a text content block.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult builds a tool-level error. Handlers return these rather
// than Go errors so the model sees the message and can correct its
// next call.
func errorResult(msg string) *mcp.CallToolResult {
	result := textResult(msg)
	result.IsError = true
	return result
}

func boolPtr(b bool) *bool { return &b }

// parseArgs decodes the raw JSON tool arguments into dst. Absent
// arguments leave dst at its zero values.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

const serverInstructions = `jshound maps a domain's JavaScript attack surface and hunts leaked
secrets: it enumerates subdomains from passive OSINT sources, crawls the
live hosts for the scripts they load, downloads every script, and runs
the bodies through a catalog of secret detection rules.

TOOLS
- list_detectors: browse the detection rule catalog. Local and instant,
  zero network requests.
- enumerate_subdomains: passive enumeration from public indexes. No
  traffic reaches the target itself.
- scan_domain: the full pipeline (enumerate, crawl, download, detect).
  Sends real traffic to every live host; minutes, not seconds.

TYPICAL WORKFLOW
1. enumerate_subdomains to size the target and confirm scope.
2. scan_domain for the full sweep. Seed "subdomains" from step 1 to
   skip re-enumeration.
3. Inspect the findings. Matched secret values come back redacted; the
   full values are only in the local scan artifacts.

AUTHORIZATION
Only scan domains you own or are explicitly authorized to assess.
Passive enumeration queries public OSINT indexes, but scan_domain
requests every live host it finds.`
