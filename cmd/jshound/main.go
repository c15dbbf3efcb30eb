package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/jshound/jshound/pkg/config"
	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/input"
	"github.com/jshound/jshound/pkg/osint"
	"github.com/jshound/jshound/pkg/output"
	"github.com/jshound/jshound/pkg/output/exitcode"
	"github.com/jshound/jshound/pkg/output/policy"
	"github.com/jshound/jshound/pkg/output/writers"
	"github.com/jshound/jshound/pkg/plugin"
	"github.com/jshound/jshound/pkg/scan"
	"github.com/jshound/jshound/pkg/ui"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(defaults.ExitUserError)
	}

	switch os.Args[1] {
	case "mcp":
		runMCP()
	case "scan", "run":
		// Remove the subcommand and continue with normal execution
		os.Args = append(os.Args[:1], os.Args[2:]...)
		runScan()
	case "-h", "--help", "help":
		printUsage()
		os.Exit(0)
	case "-v", "--version", "version":
		ui.PrintMiniBanner()
		os.Exit(0)
	default:
		// Assume it's a flag for the default "scan" command
		runScan()
	}
}

func printUsage() {
	ui.PrintBanner()

	fmt.Println(ui.SectionStyle.Render("USAGE"))
	fmt.Println()
	fmt.Printf("  %s\n", ui.ConfigValueStyle.Render("jshound -d example.com"))
	fmt.Printf("  %s\n", ui.ConfigValueStyle.Render("jshound -d example.com -enum-only"))
	fmt.Printf("  %s\n", ui.ConfigValueStyle.Render("cat subdomains.txt | jshound -d example.com -stdin"))
	fmt.Printf("  %s\n", ui.ConfigValueStyle.Render("jshound -d example.com -json-export report.json -sarif-export report.sarif"))
	fmt.Printf("  %s\n", ui.ConfigValueStyle.Render("jshound mcp --http :8080"))
	fmt.Println()

	fmt.Println(ui.SectionStyle.Render("PIPELINE"))
	fmt.Println()
	fmt.Printf("    %s  Subdomains from crt.sh, HackerTarget, SecurityTrails, assetfinder, subfinder\n", ui.ConfigValueStyle.Render("1. enumerate"))
	fmt.Printf("    %s  Crawl each live host for the JavaScript it references\n", ui.ConfigValueStyle.Render("2. discover "))
	fmt.Printf("    %s  Fetch every script once, content-deduplicated, into the output dir\n", ui.ConfigValueStyle.Render("3. download "))
	fmt.Printf("    %s  Match secret patterns against scripts and page bodies\n", ui.ConfigValueStyle.Render("4. detect   "))
	fmt.Println()

	fmt.Println(ui.SectionStyle.Render("COMMANDS"))
	fmt.Println()
	fmt.Printf("  %s  %s\n", ui.StatValueStyle.Render("scan   "), "Run the full pipeline (default when only flags are given)")
	fmt.Printf("  %s  %s\n", ui.StatValueStyle.Render("mcp    "), "Start an MCP server exposing the pipeline as AI tools")
	fmt.Printf("  %s  %s\n", ui.StatValueStyle.Render("version"), "Print version information")
	fmt.Printf("  %s  %s\n", ui.StatValueStyle.Render("help   "), "Show this help")
	fmt.Println()

	fmt.Println(ui.SectionStyle.Render("TARGET"))
	fmt.Println()
	fmt.Println("  -d,  -domain string    Root domain to scan (required)")
	fmt.Println("  -sub value             Crawl these hosts instead of enumerating (repeatable, comma-separated)")
	fmt.Println("  -l,  -list string      File of hosts to crawl instead of enumerating")
	fmt.Println("  -stdin                 Read hosts from piped stdin")
	fmt.Println("  -config string         YAML config file, flags take precedence")
	fmt.Println()

	fmt.Println(ui.SectionStyle.Render("EXECUTION"))
	fmt.Println()
	fmt.Printf("  -c,  -concurrency int  Concurrent workers per stage (default: %d)\n", defaults.ConcurrencyMedium)
	fmt.Println("  -rl, -rate-limit int   Max requests per second, 0 = unlimited")
	fmt.Println("  -host-rate int         Max requests per second per host, 0 = unlimited")
	fmt.Println("  -t,  -timeout int      HTTP timeout in seconds (default: 30)")
	fmt.Println("  -r,  -retries int      Retries on transient request failures (default: 2)")
	fmt.Println("  -x,  -proxy string     HTTP/SOCKS5 proxy URL")
	fmt.Println("  -mimic-tls             Send browser-accurate TLS fingerprints")
	fmt.Println()

	fmt.Println(ui.SectionStyle.Render("ENUMERATION"))
	fmt.Println()
	fmt.Printf("  -api-key string        SecurityTrails API key (or %s)\n", config.SecurityTrailsEnv)
	fmt.Println("  -sources value         Enumeration sources to use (default: all)")
	fmt.Println("  -exclude-sources value Enumeration sources to disable")
	fmt.Println("  -enum-only             Stop after enumeration, print hosts on stdout")
	fmt.Println()

	fmt.Println(ui.SectionStyle.Render("DETECTION"))
	fmt.Println()
	fmt.Println("  -plugins value         Detection plugins to use (default: all built-ins)")
	fmt.Println("  -exclude-plugins value Detection plugins to disable")
	fmt.Println("  -rules string          Extra YAML rules file or directory")
	fmt.Println("  -plugin-dir string     Directory of Tengo plugin scripts")
	fmt.Println("  -policy string         Policy file evaluated against the results")
	fmt.Println("  -include-cdn           Keep cross-origin script references")
	fmt.Println("  -headless              Also collect scripts from a browser-rendered page")
	fmt.Println()

	fmt.Println(ui.SectionStyle.Render("OUTPUT"))
	fmt.Println()
	fmt.Printf("  -o,  -output string    Directory for scan artifacts (default: %s)\n", defaults.OutputDir)
	fmt.Println("  -format string         Stdout format: console, json, jsonl (default: console)")
	fmt.Println("  -j,  -json             Stream events as JSON lines (same as -format jsonl)")
	fmt.Println("  -je, -json-export      Write the JSON report to a file")
	fmt.Println("  -jle,-jsonl-export     Write the event stream to a JSONL file")
	fmt.Println("  -se, -sarif-export     Write a SARIF report for code scanning")
	fmt.Println("  -ce, -csv-export       Write findings to a CSV file")
	fmt.Println("  -re, -report-export    Write a rendered text report (-template for a custom one)")
	fmt.Println("  -pe, -pdf-export       Write a PDF report (-no-evidence drops matched context)")
	fmt.Println("  -s,  -silent           Findings and machine output only")
	fmt.Println("  -nc, -no-color         Disable colored output")
	fmt.Println("  -metrics-port int      Serve Prometheus metrics on this port")
	fmt.Println("  -otel-endpoint string  OTLP gRPC endpoint for trace export")
	fmt.Println()

	fmt.Println(ui.SectionStyle.Render("EXIT CODES"))
	fmt.Println()
	fmt.Println("    0  no secrets detected")
	fmt.Println("    1  secrets found")
	fmt.Println("    2  invalid configuration")
	fmt.Println("    3  network failure")
	fmt.Println("    4  internal error")
	fmt.Println("  130  interrupted")
	fmt.Println()

	fmt.Println(ui.HelpStyle.Render("  Only scan domains you are authorized to test."))
	fmt.Println()
}

// runScan executes the recon pipeline, or just its enumeration stage
// with -enum-only.
func runScan() {
	cfg, err := config.ParseFlags()
	if err != nil {
		ui.PrintError(fmt.Sprintf("Configuration error: %v", err))
		ui.PrintHelp("Run 'jshound help' for usage")
		os.Exit(defaults.ExitUserError)
	}

	ui.SetSilent(cfg.Silent)
	ui.SetNoColor(cfg.NoColor)
	ui.PrintBanner()

	seeds, err := (&input.HostSource{
		Hosts:    cfg.Subdomains,
		ListFile: cfg.ListFile,
		Stdin:    cfg.StdinInput,
	}).Gather()
	if err != nil {
		ui.PrintError(fmt.Sprintf("Host list error: %v", err))
		os.Exit(defaults.ExitUserError)
	}

	sources, err := buildSources(cfg)
	if err != nil {
		ui.PrintError(fmt.Sprintf("Source configuration error: %v", err))
		os.Exit(defaults.ExitUserError)
	}

	registry, warnings, err := buildRegistry(cfg)
	if err != nil {
		ui.PrintError(fmt.Sprintf("Rule configuration error: %v", err))
		os.Exit(defaults.ExitUserError)
	}
	for _, w := range warnings {
		ui.PrintWarning(w)
	}
	rules, err := registry.Load()
	if err != nil {
		ui.PrintError(fmt.Sprintf("Rule configuration error: %v", err))
		os.Exit(defaults.ExitUserError)
	}

	// A broken policy file should fail here, not after the scan has
	// spent minutes on the network.
	var pol *policy.Policy
	if cfg.PolicyFile != "" {
		pol, err = policy.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			ui.PrintError(fmt.Sprintf("Policy error: %v", err))
			os.Exit(defaults.ExitUserError)
		}
	}

	// Graceful shutdown: first interrupt cancels the scan, the partial
	// result still flows through the writers.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr)
		ui.PrintWarning("Interrupt received, shutting down gracefully...")
		cancel()
	}()

	if cfg.EnumOnly {
		os.Exit(runEnumOnly(ctx, cfg, sources))
	}

	ui.PrintConfigBanner(configOptions(cfg, sources, len(rules), len(seeds)))

	d, manager, err := output.BuildDispatcher(output.Config{
		JSONExport:     cfg.JSONExport,
		JSONLExport:    cfg.JSONLExport,
		SARIFExport:    cfg.SARIFExport,
		CSVExport:      cfg.CSVExport,
		TemplateExport: cfg.ReportExport,
		TemplatePath:   cfg.TemplatePath,
		PDFExport:      cfg.PDFExport,
		JSONMode:       cfg.Format == config.FormatJSONL,
		IncludeAssets:  cfg.IncludeAssets,
		OnlyFindings:   cfg.OnlyFindings,
		OmitEvidence:   cfg.OmitEvidence,
		Silent:         cfg.Silent || cfg.Format == config.FormatJSON,
		Verbose:        cfg.Verbose,
		MetricsPort:    cfg.MetricsPort,
		OTelEndpoint:   cfg.OTelEndpoint,
		OTelInsecure:   cfg.OTelInsecure,
		ExitOnError:    cfg.ExitOnError,
		ErrorThreshold: cfg.ErrorThreshold,
		Version:        defaults.Version,
	})
	if err != nil {
		ui.PrintError(fmt.Sprintf("Output setup error: %v", err))
		os.Exit(defaults.ExitUserError)
	}

	// -format json renders the full report document on stdout once the
	// scan completes; the streaming console rendering stays suppressed.
	if cfg.Format == config.FormatJSON {
		d.RegisterWriter(writers.NewJSONWriter(os.Stdout, writers.JSONOptions{
			IncludeAssets: cfg.IncludeAssets,
		}))
	}

	runner := scan.New(scan.Config{
		Domain:            cfg.Domain,
		OutputDir:         cfg.OutputDir,
		Subdomains:        seeds,
		SecurityTrailsKey: cfg.SecurityTrailsKey,
		Concurrency:       cfg.Concurrency,
		RateLimit:         cfg.RateLimit,
		PerHostRate:       cfg.PerHostRate,
		Timeout:           cfg.Timeout,
		Retries:           cfg.Retries,
		Proxy:             cfg.Proxy,
		IncludeCDN:        cfg.IncludeCDN,
		Headless:          cfg.Headless,
		MimicTLS:          cfg.MimicTLS,
	},
		scan.WithSources(sources),
		scan.WithRegistry(registry),
		scan.WithDispatcher(d),
	)

	result, runErr := runner.Run(ctx)
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		manager.SetInterrupted()
	case errors.Is(runErr, scan.ErrInvalidDomain):
		ui.PrintError(fmt.Sprintf("Scan error: %v", runErr))
		manager.SetConfigError()
	case result == nil:
		// Setup failed before the pipeline started: no usable sources,
		// no rules, or a collaborator that would not build.
		ui.PrintError(fmt.Sprintf("Scan error: %v", runErr))
		manager.SetConfigError()
	default:
		ui.PrintError(fmt.Sprintf("Scan error: %v", runErr))
		manager.SetInternalError()
	}

	// Close flushes every writer's final document.
	if err := d.Close(); err != nil {
		ui.PrintWarning(fmt.Sprintf("Output flush: %v", err))
	}

	code, reason := manager.ExitCode()

	if pol != nil && result != nil {
		pr := pol.Evaluate(result.Findings, policy.ScanStats{
			Assets:       len(result.Assets),
			FailedAssets: result.Failed(),
		})
		reportPolicy(pr)
		code, reason = applyPolicy(code, reason, pr)
	}

	if code != exitcode.Success {
		ui.PrintInfo(fmt.Sprintf("Exit: %s (%s)", exitcode.CodeString(code), reason))
	}
	os.Exit(int(code))
}

// runEnumOnly performs the enumeration stage alone and prints the hosts
// on stdout, one per line, for piping into other tools. The list and
// its JSON form still land in the output directory.
func runEnumOnly(ctx context.Context, cfg *config.Config, sources *osint.Manager) int {
	ui.PrintConfigBanner(map[string]string{
		"Target":     cfg.Domain,
		"Sources":    sourceNames(sources),
		"Output Dir": cfg.OutputDir,
		"Mode":       "enumerate only",
	})

	set, err := sources.Enumerate(ctx, cfg.Domain)
	if set == nil {
		ui.PrintError(fmt.Sprintf("Enumeration failed: %v", err))
		return defaults.ExitUserError
	}
	if err != nil {
		msgs := sourceErrors(err)
		for _, m := range msgs {
			ui.PrintWarning(m)
		}
		if len(msgs) >= len(sources.Sources()) {
			ui.PrintError("Every enumeration source failed")
			return defaults.ExitNetworkError
		}
	}
	if ctx.Err() != nil {
		return defaults.ExitInterrupted
	}

	hosts := set.Sorted()
	for _, h := range hosts {
		fmt.Println(h)
	}

	listPath := filepath.Join(cfg.OutputDir, defaults.SubdomainListName)
	if err := osint.WriteList(listPath, set); err != nil {
		ui.PrintError(fmt.Sprintf("Write %s: %v", listPath, err))
		return defaults.ExitInternalError
	}
	jsonPath := filepath.Join(cfg.OutputDir, defaults.SubdomainJSONName)
	if err := osint.WriteJSON(jsonPath, cfg.Domain, set); err != nil {
		ui.PrintError(fmt.Sprintf("Write %s: %v", jsonPath, err))
		return defaults.ExitInternalError
	}

	ui.PrintSuccess(fmt.Sprintf("%d subdomains for %s saved to %s", len(hosts), cfg.Domain, listPath))
	return defaults.ExitSuccess
}

// buildSources assembles the enumeration manager. Without -sources or
// -exclude-sources this is the stock set; otherwise sources register
// one by one so a name the user asked for fails loudly instead of
// being skipped.
func buildSources(cfg *config.Config) (*osint.Manager, error) {
	if len(cfg.Sources) == 0 && len(cfg.ExcludeSources) == 0 {
		return osint.NewDefaultManager(cfg.SecurityTrailsKey)
	}

	names := selectSources(cfg.Sources, cfg.ExcludeSources, cfg.SecurityTrailsKey != "")
	if len(names) == 0 {
		return nil, osint.ErrNoSources
	}

	m := osint.NewManager()
	for _, name := range names {
		sc := osint.SourceConfig{Source: name, Enabled: true}
		switch name {
		case osint.SourceCrtsh:
			sc.RateLimit = defaults.SourceRateLimit
		case osint.SourceHackerTarget:
			sc.RateLimit = defaults.SourceRateLimitStrict
		case osint.SourceSecurityTrails:
			if cfg.SecurityTrailsKey == "" {
				return nil, fmt.Errorf("source securitytrails needs an API key (-api-key or %s)", config.SecurityTrailsEnv)
			}
			sc.APIKey = cfg.SecurityTrailsKey
			sc.RateLimit = defaults.SourceRateLimit
		}
		if err := m.RegisterSource(sc); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// selectSources resolves the allowlist and denylist into the final
// source names. An empty allowlist means every stock source, with
// SecurityTrails included only when a key is present.
func selectSources(allow, exclude []string, haveKey bool) []osint.Source {
	var base []osint.Source
	if len(allow) > 0 {
		for _, name := range allow {
			base = append(base, osint.Source(strings.ToLower(strings.TrimSpace(name))))
		}
	} else {
		base = []osint.Source{
			osint.SourceCrtsh,
			osint.SourceHackerTarget,
			osint.SourceAssetfinder,
			osint.SourceSubfinder,
		}
		if haveKey {
			base = append(base, osint.SourceSecurityTrails)
		}
	}

	if len(exclude) == 0 {
		return base
	}
	skip := make(map[osint.Source]bool, len(exclude))
	for _, name := range exclude {
		skip[osint.Source(strings.ToLower(strings.TrimSpace(name)))] = true
	}
	var kept []osint.Source
	for _, s := range base {
		if !skip[s] {
			kept = append(kept, s)
		}
	}
	return kept
}

// buildRegistry assembles the detection rule registry from the
// built-in providers and any user-supplied YAML or Tengo sources. The
// returned warnings are per-file load failures that did not stop the
// build.
func buildRegistry(cfg *config.Config) (*plugin.Registry, []string, error) {
	providers := plugin.Builtins()
	if len(cfg.Plugins) > 0 {
		providers = selectProviders(providers, cfg.Plugins)
		if len(providers) == 0 {
			return nil, nil, fmt.Errorf("no built-in plugin matches %s", strings.Join(cfg.Plugins, ", "))
		}
	}
	providers = plugin.Filter(providers, cfg.ExcludePlugins)

	reg := plugin.NewRegistry()
	for _, p := range providers {
		if err := reg.Register(p); err != nil {
			return nil, nil, err
		}
	}

	var warnings []string

	if cfg.RulesPath != "" {
		info, err := os.Stat(cfg.RulesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("rules path: %w", err)
		}
		if info.IsDir() {
			loaded, errs := plugin.LoadRuleDir(cfg.RulesPath)
			for _, e := range errs {
				warnings = append(warnings, e.Error())
			}
			for _, p := range loaded {
				if err := reg.Register(p); err != nil {
					return nil, nil, err
				}
			}
		} else {
			p, err := plugin.LoadRuleFile(cfg.RulesPath)
			if err != nil {
				return nil, nil, err
			}
			if err := reg.Register(p); err != nil {
				return nil, nil, err
			}
		}
	}

	if cfg.ScriptDir != "" {
		loaded, errs := plugin.LoadScriptDir(cfg.ScriptDir)
		for _, e := range errs {
			warnings = append(warnings, e.Error())
		}
		for _, p := range loaded {
			if err := reg.Register(p); err != nil {
				return nil, nil, err
			}
		}
	}

	return reg, warnings, nil
}

// selectProviders keeps only the named providers, case-insensitively.
func selectProviders(providers []plugin.Provider, names []string) []plugin.Provider {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		want[strings.ToLower(strings.TrimSpace(name))] = true
	}
	var kept []plugin.Provider
	for _, p := range providers {
		if want[strings.ToLower(p.Name())] {
			kept = append(kept, p)
		}
	}
	return kept
}

// applyPolicy folds a policy verdict into the exit decision. The
// policy file owns the pass/fail call on findings, so a passing policy
// downgrades secrets-found to success and a failing one upgrades
// success. States above secrets in the priority order (interrupted,
// configuration, network, internal) stay untouched.
func applyPolicy(code exitcode.Code, reason string, pr policy.PolicyResult) (exitcode.Code, string) {
	if code != exitcode.Success && code != exitcode.SecretsFound {
		return code, reason
	}

	name := "policy"
	if pr.PolicyName != "" {
		name = fmt.Sprintf("policy %q", pr.PolicyName)
	}
	if pr.Pass {
		return exitcode.Success, fmt.Sprintf("%s passed, %d findings evaluated", name, pr.Evaluated)
	}
	return exitcode.Code(pr.ExitCode), fmt.Sprintf("%s failed: %s", name, strings.Join(pr.Failures, "; "))
}

// reportPolicy prints the policy verdict on stderr.
func reportPolicy(pr policy.PolicyResult) {
	if pr.Pass {
		ui.PrintSuccess(fmt.Sprintf("Policy passed (%d findings evaluated)", pr.Evaluated))
		return
	}
	for _, f := range pr.Failures {
		ui.PrintError("Policy: " + f)
	}
}

// configOptions builds the ffuf-style configuration banner entries.
func configOptions(cfg *config.Config, sources *osint.Manager, ruleCount, seedCount int) map[string]string {
	options := map[string]string{
		"Target":      cfg.Domain,
		"Rules":       fmt.Sprintf("%d", ruleCount),
		"Concurrency": fmt.Sprintf("%d", cfg.Concurrency),
		"Timeout":     cfg.Timeout.String(),
		"Output Dir":  cfg.OutputDir,
		"Format":      cfg.Format,
	}
	if seedCount > 0 {
		options["Hosts"] = fmt.Sprintf("%d seeded", seedCount)
	} else {
		options["Sources"] = sourceNames(sources)
	}
	if cfg.RateLimit > 0 {
		options["Rate Limit"] = fmt.Sprintf("%d req/sec", cfg.RateLimit)
	}
	if cfg.Proxy != "" {
		options["Proxy"] = cfg.Proxy
	}
	if exports := exportList(cfg); exports != "" {
		options["Output"] = exports
	}
	return options
}

// exportList names the report files the scan will write.
func exportList(cfg *config.Config) string {
	var out []string
	for _, e := range []struct{ label, path string }{
		{"json", cfg.JSONExport},
		{"jsonl", cfg.JSONLExport},
		{"sarif", cfg.SARIFExport},
		{"csv", cfg.CSVExport},
		{"report", cfg.ReportExport},
		{"pdf", cfg.PDFExport},
	} {
		if e.path != "" {
			out = append(out, fmt.Sprintf("%s=%s", e.label, e.path))
		}
	}
	return strings.Join(out, ", ")
}

// sourceNames renders the registered sources as a sorted comma list.
func sourceNames(m *osint.Manager) string {
	srcs := m.Sources()
	names := make([]string, 0, len(srcs))
	for _, s := range srcs {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// sourceErrors flattens the joined per-source error from Enumerate
// into one message per failed source.
func sourceErrors(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		msgs := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}
