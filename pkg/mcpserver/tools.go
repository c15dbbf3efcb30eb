package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/osint"
	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
	"github.com/jshound/jshound/pkg/plugin"
	"github.com/jshound/jshound/pkg/scan"
	"github.com/jshound/jshound/pkg/subdomain"
)

// registerTools adds the recon tools to the MCP server.
func (s *Server) registerTools() {
	s.addListDetectorsTool()
	s.addEnumerateTool()
	s.addScanTool()
}

// ═══════════════════════════════════════════════════════════════════════════
// list_detectors — Browse the secret detection rule catalog
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addListDetectorsTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "list_detectors",
			Title: "List Secret Detectors",
			Description: `Inventory tool — browse the secret detection rule catalog WITHOUT sending any traffic.

USE THIS TOOL WHEN:
• The user asks "what secrets can you detect?"
• You want to confirm a custom rule file parses before running 'scan_domain'
• Planning which detection plugins a scan will apply

DO NOT USE THIS TOOL WHEN:
• You want to actually HUNT secrets on a target — use 'scan_domain' instead
• You only need the subdomain list — use 'enumerate_subdomains' instead

This is a READ-ONLY local operation. Zero network requests. Instant results.

EXAMPLE INPUTS:
• Built-in detectors: {} (no arguments)
• Preview a custom rule file: {"rules": "./rules/corp.yaml"}
• Preview a rule directory: {"rules_dir": "./rules"}

Returns: provider list with versions and rule counts, total rule count, and load errors for files that did not parse.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"rules": map[string]any{
						"type":        "string",
						"description": "Path to a custom YAML rule file to load alongside the built-ins.",
					},
					"rules_dir": map[string]any{
						"type":        "string",
						"description": "Directory of YAML rule files to load alongside the built-ins.",
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "List Secret Detectors",
			},
		},
		s.handleListDetectors,
	)
}

type listDetectorsArgs struct {
	Rules    string `json:"rules"`
	RulesDir string `json:"rules_dir"`
}

type detectorCatalog struct {
	Providers  []plugin.Info `json:"providers"`
	TotalRules int           `json:"total_rules"`
	LoadErrors []string      `json:"load_errors,omitempty"`
}

func (s *Server) handleListDetectors(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listDetectorsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v. Expected optional 'rules' (file path) and 'rules_dir' (directory path).", err)), nil
	}

	reg := plugin.NewDefaultRegistry()
	var loadErrors []string

	if args.Rules != "" {
		p, err := plugin.LoadRuleFile(args.Rules)
		if err != nil {
			return errorResult(fmt.Sprintf("loading %s: %v. Verify the file exists and is valid YAML.", args.Rules, err)), nil
		}
		if err := reg.Register(p); err != nil {
			return errorResult(fmt.Sprintf("registering %s: %v", args.Rules, err)), nil
		}
	}
	if args.RulesDir != "" {
		providers, errs := plugin.LoadRuleDir(args.RulesDir)
		for _, p := range providers {
			if err := reg.Register(p); err != nil {
				loadErrors = append(loadErrors, err.Error())
			}
		}
		for _, err := range errs {
			loadErrors = append(loadErrors, err.Error())
		}
	}

	infos := reg.Providers()
	catalog := detectorCatalog{Providers: infos, LoadErrors: loadErrors}
	for _, info := range infos {
		catalog.TotalRules += info.Rules
	}
	return jsonResult(catalog)
}

// ═══════════════════════════════════════════════════════════════════════════
// enumerate_subdomains — Passive subdomain enumeration
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addEnumerateTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "enumerate_subdomains",
			Title: "Enumerate Subdomains",
			Description: `Passive subdomain enumeration from public OSINT indexes. NO traffic reaches the target itself.

USE THIS TOOL WHEN:
• The user asks "what subdomains does X have?"
• Sizing a target before committing to a full 'scan_domain' run
• Building a host list to seed 'scan_domain' with (skips re-enumeration)

DO NOT USE THIS TOOL WHEN:
• You want JS assets or secrets — use 'scan_domain'; it enumerates on its own

Queries certificate transparency (crt.sh), HackerTarget, the assetfinder and subfinder tools when installed, and SecurityTrails when an API key is configured. Results are canonicalized, scope-filtered against the root domain, and deduplicated. Takes seconds to a minute depending on source latency.

EXAMPLE INPUTS:
• Everything available: {"domain": "example.com"}
• Specific sources only: {"domain": "example.com", "sources": ["crtsh", "hackertarget"]}

SOURCES: crtsh, hackertarget, assetfinder, subfinder, securitytrails (needs API key)

Returns: sorted subdomain list, the sources queried, and per-source failures when some sources errored. A failed source costs coverage, not the result.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"domain": map[string]any{
						"type":        "string",
						"description": "Root domain to enumerate (e.g. example.com).",
					},
					"sources": map[string]any{
						"type":        "array",
						"description": "Restrict enumeration to these sources. Empty means every available source.",
						"items": map[string]any{
							"type": "string",
							"enum": []string{"crtsh", "hackertarget", "assetfinder", "subfinder", "securitytrails"},
						},
					},
				},
				"required": []string{"domain"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(true),
				Title:          "Enumerate Subdomains",
			},
		},
		s.handleEnumerate,
	)
}

type enumerateArgs struct {
	Domain  string   `json:"domain"`
	Sources []string `json:"sources"`
}

type enumerateSummary struct {
	Domain       string   `json:"domain"`
	Total        int      `json:"total"`
	Sources      []string `json:"sources_queried"`
	Subdomains   []string `json:"subdomains"`
	SourceErrors []string `json:"source_errors,omitempty"`
}

func (s *Server) handleEnumerate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args enumerateArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Domain == "" {
		return errorResult(`domain is required. Example: {"domain": "example.com"}`), nil
	}

	manager, err := s.sourceManager(args.Sources)
	if err != nil {
		return errorResult(fmt.Sprintf("configuring sources: %v", err)), nil
	}
	if len(manager.Sources()) == 0 {
		return errorResult("no enumeration sources available. Pass a non-empty 'sources' list or configure an API key."), nil
	}

	notifyProgress(ctx, req, 0, 100, "Enumerating subdomains of "+args.Domain)
	logToSession(ctx, req, logInfo, "Passive enumeration started for "+args.Domain)

	set, err := manager.Enumerate(ctx, args.Domain)
	if set == nil {
		return errorResult(fmt.Sprintf("enumeration failed: %v", err)), nil
	}

	summary := enumerateSummary{
		Domain:     subdomain.Canonicalize(args.Domain),
		Total:      set.Len(),
		Subdomains: set.Sorted(),
	}
	for _, src := range manager.Sources() {
		summary.Sources = append(summary.Sources, string(src))
	}
	sort.Strings(summary.Sources)
	if err != nil {
		summary.SourceErrors = sourceErrorStrings(err)
	}

	notifyProgress(ctx, req, 100, 100, "Enumeration complete")
	logToSession(ctx, req, logInfo, fmt.Sprintf("Found %d subdomains for %s", set.Len(), args.Domain))

	return jsonResult(summary)
}

// sourceManager builds the enumeration manager, restricted to the named
// sources when a list is given.
func (s *Server) sourceManager(names []string) (*osint.Manager, error) {
	if len(names) == 0 {
		return osint.NewDefaultManager(s.config.SecurityTrailsKey)
	}

	m := osint.NewManager()
	for _, name := range names {
		cfg := osint.SourceConfig{
			Source:  osint.Source(name),
			Enabled: true,
		}
		switch cfg.Source {
		case osint.SourceCrtsh:
			cfg.RateLimit = defaults.SourceRateLimit
		case osint.SourceHackerTarget:
			cfg.RateLimit = defaults.SourceRateLimitStrict
		case osint.SourceSecurityTrails:
			if s.config.SecurityTrailsKey == "" {
				return nil, fmt.Errorf("source securitytrails needs an API key")
			}
			cfg.APIKey = s.config.SecurityTrailsKey
			cfg.RateLimit = defaults.SourceRateLimit
		}
		if err := m.RegisterSource(cfg); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// sourceErrorStrings flattens the joined per-source error from
// Enumerate into one message per failed source.
func sourceErrorStrings(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		msgs := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}

// ═══════════════════════════════════════════════════════════════════════════
// scan_domain — Full JS secret hunting pipeline
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addScanTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "scan_domain",
			Title: "Scan Domain for Leaked Secrets",
			Description: `Run the full recon pipeline against a root domain: enumerate subdomains, crawl the live hosts for the JavaScript they load, download every script, and match the bodies against the secret detection rules.

USE THIS TOOL WHEN:
• The user says "scan X", "find leaked secrets on X", or "audit X's JavaScript"
• After 'enumerate_subdomains' confirmed the target is the right size

DO NOT USE THIS TOOL WHEN:
• You only need the subdomain list — use 'enumerate_subdomains'; it sends nothing to the target
• You only want to inspect detection rules — use 'list_detectors'

This sends real traffic: every live subdomain is crawled and its scripts downloaded. Respect authorization. A medium domain takes 1-5 minutes; progress streams as each pipeline stage completes.

EXAMPLE INPUTS:
• Standard scan: {"domain": "example.com"}
• Seeded hosts (skips enumeration): {"domain": "example.com", "subdomains": ["app.example.com", "cdn.example.com"]}
• Include third-party CDN scripts: {"domain": "example.com", "include_cdn": true}
• Gentle on the target: {"domain": "example.com", "concurrency": 5, "rate_limit": 10}

Returns: scan summary with per-stage counts, findings grouped by severity and plugin, and a preview of the most severe findings. Matched secret values come back REDACTED; the full values are only in the local scan artifacts.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"domain": map[string]any{
						"type":        "string",
						"description": "Root domain to scan (e.g. example.com).",
					},
					"subdomains": map[string]any{
						"type":        "array",
						"description": "Skip enumeration and crawl exactly these hosts.",
						"items":       map[string]any{"type": "string"},
					},
					"concurrency": map[string]any{
						"type":        "integer",
						"description": "Parallel workers per pipeline stage.",
						"default":     10,
						"minimum":     1,
						"maximum":     50,
					},
					"rate_limit": map[string]any{
						"type":        "integer",
						"description": "Total requests-per-second cap across all hosts (0 = unlimited).",
						"default":     0,
						"minimum":     0,
					},
					"timeout": map[string]any{
						"type":        "integer",
						"description": "Per-request timeout in seconds.",
						"default":     30,
						"minimum":     1,
						"maximum":     300,
					},
					"include_cdn": map[string]any{
						"type":        "boolean",
						"description": "Also download scripts served from third-party domains.",
						"default":     false,
					},
					"headless": map[string]any{
						"type":        "boolean",
						"description": "Render pages in a headless browser to catch dynamically injected scripts. Slower; needs Chrome.",
						"default":     false,
					},
				},
				"required": []string{"domain"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:    false,
				IdempotentHint:  false,
				OpenWorldHint:   boolPtr(true),
				DestructiveHint: boolPtr(false),
				Title:           "Scan Domain for Leaked Secrets",
			},
		},
		s.handleScan,
	)
}

type scanArgs struct {
	Domain      string   `json:"domain"`
	Subdomains  []string `json:"subdomains"`
	Concurrency int      `json:"concurrency"`
	RateLimit   int      `json:"rate_limit"`
	Timeout     int      `json:"timeout"`
	IncludeCDN  bool     `json:"include_cdn"`
	Headless    bool     `json:"headless"`
}

func (s *Server) handleScan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args scanArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Domain == "" {
		return errorResult(`domain is required. Example: {"domain": "example.com"}`), nil
	}

	cfg := scan.Config{
		Domain:            args.Domain,
		OutputDir:         s.config.OutputDir,
		Subdomains:        args.Subdomains,
		SecurityTrailsKey: s.config.SecurityTrailsKey,
		Concurrency:       args.Concurrency,
		RateLimit:         args.RateLimit,
		Timeout:           time.Duration(args.Timeout) * time.Second,
		IncludeCDN:        args.IncludeCDN,
		Headless:          args.Headless,
	}

	// Stream pipeline events back to the client as the scan runs.
	d := dispatcher.New(dispatcher.Config{})
	d.RegisterHook(eventFunc(func(ev events.Event) {
		forwardEvent(ctx, req, ev)
	}))

	notifyProgress(ctx, req, 0, 100, "Starting scan of "+args.Domain)
	logToSession(ctx, req, logInfo, "Scan started for "+args.Domain)

	result, err := scan.New(cfg, scan.WithDispatcher(d)).Run(ctx)
	if result == nil {
		return errorResult(fmt.Sprintf("scan failed: %v. Check the domain spelling and that at least one enumeration source is available.", err)), nil
	}

	notifyProgress(ctx, req, 100, 100, "Scan complete")
	logToSession(ctx, req, logInfo, fmt.Sprintf("Scan of %s finished: %d findings", result.Domain, len(result.Findings)))

	summary := buildScanSummary(result, err)
	summary.OutputDir = s.config.OutputDir
	return jsonResult(summary)
}

// scanProgress maps each completed stage to an overall percentage.
var scanProgress = map[events.Stage]float64{
	events.StageEnumerate: 25,
	events.StageDiscover:  50,
	events.StageDownload:  75,
	events.StageDetect:    95,
}

// forwardEvent turns pipeline events into MCP notifications: stage
// completions become progress updates, findings become log messages.
// The matched secret is redacted before it leaves the process.
func forwardEvent(ctx context.Context, req *mcp.CallToolRequest, ev events.Event) {
	switch e := ev.(type) {
	case *events.StageEvent:
		if pct, ok := scanProgress[e.Stage]; ok {
			notifyProgress(ctx, req, pct, 100,
				fmt.Sprintf("%s: %d items, %d errors", e.Stage, e.Count, e.Errors))
		}
	case *events.FindingEvent:
		logToSession(ctx, req, logWarning, fmt.Sprintf("%s [%s] %s in %s",
			e.Finding.Rule, e.Finding.Severity,
			finding.Redact(e.Finding.Match), e.Finding.Asset))
	}
}

type scanSummary struct {
	ScanID       string           `json:"scan_id"`
	Domain       string           `json:"domain"`
	DurationSec  float64          `json:"duration_sec"`
	Interrupted  bool             `json:"interrupted,omitempty"`
	Subdomains   int              `json:"subdomains"`
	Assets       int              `json:"assets"`
	Downloaded   int              `json:"downloaded"`
	Duplicates   int              `json:"duplicates,omitempty"`
	FailedAssets int              `json:"failed_assets,omitempty"`
	Findings     int              `json:"findings"`
	BySeverity   map[string]int   `json:"by_severity,omitempty"`
	ByPlugin     map[string]int   `json:"by_plugin,omitempty"`
	TopFindings  []findingPreview `json:"top_findings,omitempty"`
	Errors       int              `json:"errors,omitempty"`
	OutputDir    string           `json:"output_dir"`
}

type findingPreview struct {
	Rule     string `json:"rule"`
	Plugin   string `json:"plugin"`
	Severity string `json:"severity"`
	Asset    string `json:"asset"`
	Line     int    `json:"line,omitempty"`
	Match    string `json:"match"`
}

// buildScanSummary flattens a scan result for the AI. Matched secrets
// are redacted; the full values stay in the local artifacts only.
func buildScanSummary(res *scan.Result, cause error) *scanSummary {
	sum := &scanSummary{
		ScanID:       res.ScanID,
		Domain:       res.Domain,
		DurationSec:  res.Duration.Seconds(),
		Interrupted:  cause != nil,
		Subdomains:   len(res.Subdomains),
		Assets:       len(res.Assets),
		Downloaded:   res.Downloaded(),
		Duplicates:   res.Duplicates(),
		FailedAssets: res.Failed(),
		Findings:     len(res.Findings),
		Errors:       len(res.Errors),
	}

	if len(res.Findings) == 0 {
		return sum
	}

	sum.BySeverity = make(map[string]int)
	for sev, n := range finding.CountBySeverity(res.Findings) {
		sum.BySeverity[string(sev)] = n
	}
	sum.ByPlugin = finding.CountByPlugin(res.Findings)

	ordered := append([]finding.Finding(nil), res.Findings...)
	finding.Sort(ordered)

	limit := 20
	if len(ordered) < limit {
		limit = len(ordered)
	}
	for _, f := range ordered[:limit] {
		sum.TopFindings = append(sum.TopFindings, findingPreview{
			Rule:     f.Rule,
			Plugin:   f.Plugin,
			Severity: string(f.Severity),
			Asset:    f.Asset,
			Line:     f.Line,
			Match:    finding.Redact(f.Match),
		})
	}
	return sum
}
