package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jshound/jshound/pkg/config"
	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/mcpserver"
)

// runMCP starts the MCP (Model Context Protocol) server.
// Supports two transport modes:
//   - --stdio (default): For IDE integrations (VS Code, Claude Desktop, Cursor)
//   - --http <addr>:     For remote/Docker deployments
func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)

	stdio := fs.Bool("stdio", true, "Use stdio transport (default, for IDE integration)")
	httpAddr := fs.String("http", "", "HTTP address to listen on (e.g. :8080). Disables stdio.")
	outputDir := fs.String("output", envOrDefault("JSHOUND_OUTPUT_DIR", defaults.OutputDir), "Directory for scan artifacts")
	apiKey := fs.String("api-key", os.Getenv(config.SecurityTrailsEnv), "SecurityTrails API key")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: jshound mcp [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Start an MCP server for AI-driven secret reconnaissance.\n\n")
		fmt.Fprintf(os.Stderr, "Transports:\n")
		fmt.Fprintf(os.Stderr, "  --stdio          Stdio transport for IDE integration (default)\n")
		fmt.Fprintf(os.Stderr, "  --http <addr>    Streamable HTTP transport for remote/Docker\n\n")
		fmt.Fprintf(os.Stderr, "Environment variables:\n")
		fmt.Fprintf(os.Stderr, "  JSHOUND_OUTPUT_DIR           Scan artifact directory (default: %s)\n", defaults.OutputDir)
		fmt.Fprintf(os.Stderr, "  JSHOUND_HTTP_ADDR            HTTP listen address (same as --http)\n")
		fmt.Fprintf(os.Stderr, "  %s  SecurityTrails API key\n\n", config.SecurityTrailsEnv)
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  jshound mcp --stdio\n")
		fmt.Fprintf(os.Stderr, "  jshound mcp --http :8080\n")
		fmt.Fprintf(os.Stderr, "  JSHOUND_OUTPUT_DIR=/data/scans jshound mcp --http :8080\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(defaults.ExitUserError)
	}

	// Allow env var override for HTTP address (useful in Docker/K8s)
	if *httpAddr == "" {
		if envAddr := os.Getenv("JSHOUND_HTTP_ADDR"); envAddr != "" {
			*httpAddr = envAddr
		}
	}

	// --- Startup validation: output directory ---
	if err := validateOutputDir(*outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: output directory %q: %v\n", *outputDir, err)
		fmt.Fprintf(os.Stderr, "hint: set --output or JSHOUND_OUTPUT_DIR to a writable directory\n")
		os.Exit(defaults.ExitUserError)
	}

	srv := mcpserver.New(&mcpserver.Config{
		OutputDir:         *outputDir,
		SecurityTrailsKey: *apiKey,
	})
	srv.MarkReady() // Signal that startup validation passed

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *httpAddr != "" {
		// HTTP transport mode
		*stdio = false

		httpSrv := &http.Server{
			Addr:              *httpAddr,
			Handler:           srv.HTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// WriteTimeout intentionally 0: a scan_domain call streams
			// for as long as the scan runs, and any non-zero value sets
			// an absolute deadline that would cut it off.
			// ReadHeaderTimeout + ReadTimeout protect against slowloris.
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1 MB
		}

		go func() {
			<-ctx.Done()
			// Graceful shutdown: drain in-flight requests within 15 seconds
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownCancel()
			fmt.Fprintln(os.Stderr, "jshound: shutting down gracefully...")
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "error during shutdown: %v\n", err)
			}
		}()

		fmt.Fprintf(os.Stderr, "jshound MCP server listening on %s (HTTP transport)\n", *httpAddr)

		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(defaults.ExitInternalError)
		}
		return
	}

	// Stdio transport mode (default)
	if *stdio {
		if err := srv.RunStdio(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(defaults.ExitInternalError)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "error: no transport selected, use --stdio or --http <addr>\n")
	os.Exit(defaults.ExitUserError)
}

// envOrDefault returns the environment variable value if set, otherwise the default.
func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// validateOutputDir checks that scan artifacts will have somewhere to
// go: the directory is created when missing and probed for writability.
func validateOutputDir(dir string) error {
	if err := os.MkdirAll(dir, defaults.DirPerm); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".jshound-probe-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
