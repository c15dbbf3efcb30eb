// Package config parses the jshound command line. Flags follow the
// ffuf/nuclei short-and-long alias convention; an optional YAML config
// file supplies values for flags the user left alone.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/duration"
	"github.com/jshound/jshound/pkg/input"
)

// Stdout rendering modes for -format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatJSONL   = "jsonl"
)

// SecurityTrailsEnv supplies the API key when neither the -api-key
// flag nor the config file carries one. Keys passed on the command
// line end up in shell history; the environment is the better channel.
const SecurityTrailsEnv = "JSHOUND_SECURITYTRAILS_KEY"

// Config holds all CLI configuration options.
type Config struct {
	// Target settings
	Domain     string                // Root domain to scan (required)
	Subdomains input.MultiFlag // Hosts to crawl instead of enumerating
	ListFile   string                // File of hosts to crawl
	StdinInput bool                  // Read hosts from piped stdin
	ConfigFile string                // YAML config file merged under the flags

	// Execution settings
	Concurrency int           // Parallel workers per stage (default: 10)
	RateLimit   int           // Requests per second, 0 = unlimited
	PerHostRate int           // Per-host requests per second, 0 = unlimited
	Timeout     time.Duration // HTTP timeout (default: 30s)
	Retries     int           // Retries on transient failures (default: 2)

	// Enumeration settings
	SecurityTrailsKey string                // SecurityTrails API key (optional)
	Sources           input.MultiFlag // Source allowlist (empty = all)
	ExcludeSources    input.MultiFlag // Sources to disable
	EnumOnly          bool                  // Stop after subdomain enumeration

	// Discovery settings
	IncludeCDN bool // Keep cross-origin script references
	Headless   bool // Also collect scripts from a rendered page

	// Detection settings
	Plugins        input.MultiFlag // Plugin allowlist (empty = all built-ins)
	ExcludePlugins input.MultiFlag // Plugins to disable
	RulesPath      string                // Extra YAML rules file or directory
	ScriptDir      string                // Tengo plugin script directory
	PolicyFile     string                // Policy evaluated against the result

	// Network settings
	Proxy    string // HTTP/SOCKS5 proxy URL
	MimicTLS bool   // Browser-accurate TLS fingerprints

	// Output settings
	OutputDir     string // Directory for scan artifacts (default: jshound-out)
	Format        string // Stdout rendering: console, json, jsonl
	JSONLines     bool   // -json shortcut for -format jsonl
	JSONExport    string // JSON report file
	JSONLExport   string // JSONL event stream file
	SARIFExport   string // SARIF report file
	CSVExport     string // CSV findings file
	ReportExport  string // Rendered text report file
	TemplatePath  string // Custom Go template for the text report
	PDFExport     string // PDF report file
	IncludeAssets bool   // Include per-asset outcomes in the JSON report
	OnlyFindings  bool   // Restrict JSONL streams to finding events
	OmitEvidence  bool   // Drop matched-secret context from the PDF report
	Verbose       bool   // Verbose console output
	Silent        bool   // Silent mode (findings and machine output only)
	NoColor       bool   // Disable colored output

	// Hook settings
	MetricsPort  int    // Prometheus /metrics port (0 = off)
	OTelEndpoint string // OTLP gRPC endpoint for trace export
	OTelInsecure bool   // Plaintext OTLP connection

	// Exit code settings
	ExitOnError    bool // Fail the run when stages record too many errors
	ErrorThreshold int  // Errors tolerated by -exit-on-error (0 = built-in default)
}

// ParseFlags parses command line arguments and returns Config.
func ParseFlags() (*Config, error) {
	cfg := &Config{}

	// === TARGET ===
	flag.StringVar(&cfg.Domain, "domain", "", "Root domain to scan")
	flag.StringVar(&cfg.Domain, "d", "", "Root domain (alias)")
	flag.Var(&cfg.Subdomains, "sub", "Subdomain(s) to crawl instead of enumerating - comma-separated or repeated")
	flag.StringVar(&cfg.ListFile, "list", "", "File of subdomains to crawl instead of enumerating")
	flag.StringVar(&cfg.ListFile, "l", "", "Subdomain list file (alias)")
	flag.BoolVar(&cfg.StdinInput, "stdin", false, "Read subdomains from stdin")
	flag.StringVar(&cfg.ConfigFile, "config", "", "YAML config file (flags take precedence)")

	// === EXECUTION ===
	flag.IntVar(&cfg.Concurrency, "concurrency", defaults.ConcurrencyMedium, "Concurrent workers per stage")
	flag.IntVar(&cfg.Concurrency, "c", defaults.ConcurrencyMedium, "Concurrent workers (alias)")
	flag.IntVar(&cfg.RateLimit, "rate-limit", 0, "Max requests per second (0 = unlimited)")
	flag.IntVar(&cfg.RateLimit, "rl", 0, "Rate limit (alias)")
	flag.IntVar(&cfg.PerHostRate, "host-rate", 0, "Max requests per second per host (0 = unlimited)")
	timeout := flag.Int("timeout", int(duration.HTTPDownload/time.Second), "HTTP timeout in seconds")
	flag.IntVar(timeout, "t", int(duration.HTTPDownload/time.Second), "HTTP timeout (alias)")
	flag.IntVar(&cfg.Retries, "retries", defaults.RetryLow, "Retries on transient request failures")
	flag.IntVar(&cfg.Retries, "r", defaults.RetryLow, "Retries (alias)")

	// === ENUMERATION ===
	flag.StringVar(&cfg.SecurityTrailsKey, "api-key", "", "SecurityTrails API key (or "+SecurityTrailsEnv+")")
	flag.Var(&cfg.Sources, "sources", "Enumeration sources to use (default: all)")
	flag.Var(&cfg.ExcludeSources, "exclude-sources", "Enumeration sources to disable")
	flag.BoolVar(&cfg.EnumOnly, "enum-only", false, "Stop after subdomain enumeration")

	// === DISCOVERY ===
	flag.BoolVar(&cfg.IncludeCDN, "include-cdn", false, "Keep cross-origin script references")
	flag.BoolVar(&cfg.Headless, "headless", false, "Also collect scripts from a browser-rendered page")

	// === DETECTION ===
	flag.Var(&cfg.Plugins, "plugins", "Detection plugins to use (default: all built-ins)")
	flag.Var(&cfg.ExcludePlugins, "exclude-plugins", "Detection plugins to disable")
	flag.StringVar(&cfg.RulesPath, "rules", "", "Extra YAML rules file or directory")
	flag.StringVar(&cfg.ScriptDir, "plugin-dir", "", "Directory of Tengo plugin scripts")
	flag.StringVar(&cfg.PolicyFile, "policy", "", "Policy file evaluated against the results")

	// === NETWORK ===
	flag.StringVar(&cfg.Proxy, "proxy", "", "HTTP/SOCKS5 proxy URL")
	flag.StringVar(&cfg.Proxy, "x", "", "Proxy (alias)")
	flag.BoolVar(&cfg.MimicTLS, "mimic-tls", false, "Send browser-accurate TLS fingerprints")

	// === OUTPUT ===
	flag.StringVar(&cfg.OutputDir, "output", defaults.OutputDir, "Directory for subdomain lists and downloaded scripts")
	flag.StringVar(&cfg.OutputDir, "o", defaults.OutputDir, "Output directory (alias)")
	flag.StringVar(&cfg.Format, "format", FormatConsole, "Stdout format: console, json, jsonl")
	flag.BoolVar(&cfg.JSONLines, "json", false, "Stream events as JSON lines (same as -format jsonl)")
	flag.BoolVar(&cfg.JSONLines, "j", false, "JSON lines (alias)")
	flag.StringVar(&cfg.JSONExport, "json-export", "", "Write the JSON report to a file")
	flag.StringVar(&cfg.JSONExport, "je", "", "JSON export (alias)")
	flag.StringVar(&cfg.JSONLExport, "jsonl-export", "", "Write the event stream to a JSONL file")
	flag.StringVar(&cfg.JSONLExport, "jle", "", "JSONL export (alias)")
	flag.StringVar(&cfg.SARIFExport, "sarif-export", "", "Write a SARIF report to a file")
	flag.StringVar(&cfg.SARIFExport, "se", "", "SARIF export (alias)")
	flag.StringVar(&cfg.CSVExport, "csv-export", "", "Write findings to a CSV file")
	flag.StringVar(&cfg.CSVExport, "ce", "", "CSV export (alias)")
	flag.StringVar(&cfg.ReportExport, "report-export", "", "Write a rendered text report to a file")
	flag.StringVar(&cfg.ReportExport, "re", "", "Report export (alias)")
	flag.StringVar(&cfg.TemplatePath, "template", "", "Custom Go template for -report-export")
	flag.StringVar(&cfg.PDFExport, "pdf-export", "", "Write a PDF report to a file")
	flag.StringVar(&cfg.PDFExport, "pe", "", "PDF export (alias)")
	flag.BoolVar(&cfg.IncludeAssets, "include-assets", false, "Include per-asset outcomes in the JSON report")
	flag.BoolVar(&cfg.OnlyFindings, "only-findings", false, "Restrict JSONL streams to finding events")
	flag.BoolVar(&cfg.OmitEvidence, "no-evidence", false, "Drop matched-secret context from the PDF report")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	flag.BoolVar(&cfg.Verbose, "v", false, "Verbose (alias)")
	flag.BoolVar(&cfg.Silent, "silent", false, "Silent mode - no banner or progress")
	flag.BoolVar(&cfg.Silent, "s", false, "Silent (alias)")
	flag.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	flag.BoolVar(&cfg.NoColor, "nc", false, "No color (alias)")

	// === HOOKS ===
	flag.IntVar(&cfg.MetricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port (0 = off)")
	flag.StringVar(&cfg.OTelEndpoint, "otel-endpoint", "", "OTLP gRPC endpoint for trace export")
	flag.BoolVar(&cfg.OTelInsecure, "otel-insecure", false, "Plaintext OTLP connection")

	// === EXIT CODES ===
	flag.BoolVar(&cfg.ExitOnError, "exit-on-error", false, "Fail the run when stages record too many errors")
	flag.IntVar(&cfg.ErrorThreshold, "error-threshold", 0, "Errors tolerated by -exit-on-error (0 = built-in default)")

	// Parse
	flag.Parse()

	// Convert timeout
	cfg.Timeout = time.Duration(*timeout) * time.Second

	// Config file fills whatever the flags left alone
	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile, explicitFlags()); err != nil {
			return nil, err
		}
	}

	// Handle JSON lines shortcut
	if cfg.JSONLines {
		cfg.Format = FormatJSONL
	}

	if cfg.SecurityTrailsKey == "" {
		cfg.SecurityTrailsKey = os.Getenv(SecurityTrailsEnv)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// explicitFlags reports which flags were actually passed, so the
// config file only fills the gaps.
func explicitFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// validate rejects values the pipeline would misbehave on. It runs
// after the config file merge, so file values face the same checks.
func (c *Config) validate() error {
	if c.Domain == "" {
		return fmt.Errorf("%w: domain (use -d)", ErrMissingRequired)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate-limit %d", ErrInvalidConfig, c.RateLimit)
	}
	if c.PerHostRate < 0 {
		return fmt.Errorf("%w: host-rate %d", ErrInvalidConfig, c.PerHostRate)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout %s", ErrInvalidConfig, c.Timeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries %d", ErrInvalidConfig, c.Retries)
	}
	switch c.Format {
	case FormatConsole, FormatJSON, FormatJSONL:
	default:
		return fmt.Errorf("%w: format %q (console, json, jsonl)", ErrInvalidConfig, c.Format)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("%w: metrics-port %d", ErrInvalidConfig, c.MetricsPort)
	}
	if c.ErrorThreshold < 0 {
		return fmt.Errorf("%w: error-threshold %d", ErrInvalidConfig, c.ErrorThreshold)
	}
	return nil
}
