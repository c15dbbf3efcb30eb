package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// resetFlags resets the flag package for each test
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
}

// TestConfigDefaults verifies default values are set correctly
func TestConfigDefaults(t *testing.T) {
	resetFlags()

	// Save and restore os.Args
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound", "-d", "example.com"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.Domain != "example.com" {
		t.Errorf("Domain: got %q, want 'example.com'", cfg.Domain)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("Concurrency default: got %d, want 10", cfg.Concurrency)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit default: got %d, want 0", cfg.RateLimit)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout default: got %v, want 30s", cfg.Timeout)
	}
	if cfg.Retries != 2 {
		t.Errorf("Retries default: got %d, want 2", cfg.Retries)
	}
	if cfg.OutputDir != "jshound-out" {
		t.Errorf("OutputDir default: got %q, want 'jshound-out'", cfg.OutputDir)
	}
	if cfg.Format != FormatConsole {
		t.Errorf("Format default: got %q, want 'console'", cfg.Format)
	}
	if cfg.IncludeCDN {
		t.Error("IncludeCDN should default to false")
	}
}

// TestConfigDomainAlias verifies -domain works like -d
func TestConfigDomainAlias(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound", "-domain", "corp.test"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.Domain != "corp.test" {
		t.Errorf("Domain via -domain: got %q, want 'corp.test'", cfg.Domain)
	}
}

// TestConfigRequiresDomain verifies the domain is required
func TestConfigRequiresDomain(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound"}

	_, err := ParseFlags()
	if err == nil {
		t.Fatal("ParseFlags should fail without a domain")
	}
	if !errors.Is(err, ErrMissingRequired) {
		t.Errorf("expected ErrMissingRequired, got %v", err)
	}
}

// TestConfigConcurrencyAlias verifies -c alias
func TestConfigConcurrencyAlias(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound", "-d", "example.com", "-c", "50"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.Concurrency != 50 {
		t.Errorf("Concurrency via -c: got %d, want 50", cfg.Concurrency)
	}
}

// TestConfigRateLimitAlias verifies -rl alias
func TestConfigRateLimitAlias(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound", "-d", "example.com", "-rl", "100"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.RateLimit != 100 {
		t.Errorf("RateLimit via -rl: got %d, want 100", cfg.RateLimit)
	}
}

// TestConfigTimeoutAlias verifies -t alias converts to a duration
func TestConfigTimeoutAlias(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound", "-d", "example.com", "-t", "10"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout via -t: got %v, want 10s", cfg.Timeout)
	}
}

// TestConfigSubdomainInput verifies the crawl seed flags
func TestConfigSubdomainInput(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound", "-d", "example.com",
		"-sub", "a.example.com,b.example.com", "-sub", "c.example.com",
		"-l", "subs.txt"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if len(cfg.Subdomains) != 3 {
		t.Errorf("Subdomains: got %d entries, want 3: %v", len(cfg.Subdomains), cfg.Subdomains)
	}
	if cfg.ListFile != "subs.txt" {
		t.Errorf("ListFile via -l: got %q, want 'subs.txt'", cfg.ListFile)
	}
}

// TestConfigOutputFlags verifies output flag combinations
func TestConfigOutputFlags(t *testing.T) {
	testCases := []struct {
		name        string
		args        []string
		wantFormat  string
		wantVerbose bool
		wantSilent  bool
	}{
		{
			name:       "json format",
			args:       []string{"jshound", "-d", "example.com", "-format", "json"},
			wantFormat: FormatJSON,
		},
		{
			name:       "jsonl format",
			args:       []string{"jshound", "-d", "example.com", "-format", "jsonl"},
			wantFormat: FormatJSONL,
		},
		{
			name:       "json shortcut",
			args:       []string{"jshound", "-d", "example.com", "-json"},
			wantFormat: FormatJSONL,
		},
		{
			name:       "json alias -j",
			args:       []string{"jshound", "-d", "example.com", "-j"},
			wantFormat: FormatJSONL,
		},
		{
			name:        "verbose with -v",
			args:        []string{"jshound", "-d", "example.com", "-v"},
			wantFormat:  FormatConsole,
			wantVerbose: true,
		},
		{
			name:       "silent with -s",
			args:       []string{"jshound", "-d", "example.com", "-s"},
			wantFormat: FormatConsole,
			wantSilent: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetFlags()
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tc.args

			cfg, err := ParseFlags()
			if err != nil {
				t.Fatalf("ParseFlags failed: %v", err)
			}

			if cfg.Format != tc.wantFormat {
				t.Errorf("Format: got %q, want %q", cfg.Format, tc.wantFormat)
			}
			if cfg.Verbose != tc.wantVerbose {
				t.Errorf("Verbose: got %v, want %v", cfg.Verbose, tc.wantVerbose)
			}
			if cfg.Silent != tc.wantSilent {
				t.Errorf("Silent: got %v, want %v", cfg.Silent, tc.wantSilent)
			}
		})
	}
}

// TestConfigInvalidValues verifies out-of-range values are rejected
func TestConfigInvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"zero concurrency", []string{"jshound", "-d", "example.com", "-c", "0"}},
		{"negative rate limit", []string{"jshound", "-d", "example.com", "-rl", "-1"}},
		{"negative host rate", []string{"jshound", "-d", "example.com", "-host-rate", "-1"}},
		{"zero timeout", []string{"jshound", "-d", "example.com", "-t", "0"}},
		{"negative retries", []string{"jshound", "-d", "example.com", "-r", "-1"}},
		{"unknown format", []string{"jshound", "-d", "example.com", "-format", "xml"}},
		{"metrics port range", []string{"jshound", "-d", "example.com", "-metrics-port", "70000"}},
		{"negative error threshold", []string{"jshound", "-d", "example.com", "-error-threshold", "-5"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetFlags()
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tc.args

			_, err := ParseFlags()
			if err == nil {
				t.Fatal("ParseFlags should fail")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// TestConfigExportFlags verifies the report export aliases
func TestConfigExportFlags(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound", "-d", "example.com",
		"-je", "out.json", "-jle", "out.jsonl", "-se", "out.sarif",
		"-ce", "out.csv", "-re", "out.txt", "-pe", "out.pdf"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.JSONExport != "out.json" {
		t.Errorf("JSONExport: got %q", cfg.JSONExport)
	}
	if cfg.JSONLExport != "out.jsonl" {
		t.Errorf("JSONLExport: got %q", cfg.JSONLExport)
	}
	if cfg.SARIFExport != "out.sarif" {
		t.Errorf("SARIFExport: got %q", cfg.SARIFExport)
	}
	if cfg.CSVExport != "out.csv" {
		t.Errorf("CSVExport: got %q", cfg.CSVExport)
	}
	if cfg.ReportExport != "out.txt" {
		t.Errorf("ReportExport: got %q", cfg.ReportExport)
	}
	if cfg.PDFExport != "out.pdf" {
		t.Errorf("PDFExport: got %q", cfg.PDFExport)
	}
}

// TestConfigNetworkFlags verifies proxy and TLS flags
func TestConfigNetworkFlags(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound", "-d", "example.com",
		"-x", "socks5://127.0.0.1:1080", "-mimic-tls"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.Proxy != "socks5://127.0.0.1:1080" {
		t.Errorf("Proxy via -x: got %q", cfg.Proxy)
	}
	if !cfg.MimicTLS {
		t.Error("MimicTLS should be true with -mimic-tls")
	}
}

// TestConfigSourceAndPluginLists verifies the selection flags
func TestConfigSourceAndPluginLists(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"jshound", "-d", "example.com",
		"-sources", "crtsh,hackertarget", "-exclude-plugins", "custom-rules",
		"-rules", "extra.yaml", "-plugin-dir", "plugins/", "-policy", "policy.yaml",
		"-enum-only"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Errorf("Sources: got %v", cfg.Sources)
	}
	if len(cfg.ExcludePlugins) != 1 || cfg.ExcludePlugins[0] != "custom-rules" {
		t.Errorf("ExcludePlugins: got %v", cfg.ExcludePlugins)
	}
	if cfg.RulesPath != "extra.yaml" {
		t.Errorf("RulesPath: got %q", cfg.RulesPath)
	}
	if cfg.ScriptDir != "plugins/" {
		t.Errorf("ScriptDir: got %q", cfg.ScriptDir)
	}
	if cfg.PolicyFile != "policy.yaml" {
		t.Errorf("PolicyFile: got %q", cfg.PolicyFile)
	}
	if !cfg.EnumOnly {
		t.Error("EnumOnly should be true with -enum-only")
	}
}

// TestConfigAPIKeyEnv verifies the environment fallback for the key
func TestConfigAPIKeyEnv(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	t.Setenv(SecurityTrailsEnv, "env-key")
	os.Args = []string{"jshound", "-d", "example.com"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.SecurityTrailsKey != "env-key" {
		t.Errorf("SecurityTrailsKey from env: got %q", cfg.SecurityTrailsKey)
	}

	// An explicit flag beats the environment
	resetFlags()
	os.Args = []string{"jshound", "-d", "example.com", "-api-key", "flag-key"}

	cfg, err = ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.SecurityTrailsKey != "flag-key" {
		t.Errorf("SecurityTrailsKey: got %q, want 'flag-key'", cfg.SecurityTrailsKey)
	}
}

// TestConfigFile verifies config file values fill unset flags
func TestConfigFile(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	path := filepath.Join(t.TempDir(), "jshound.yaml")
	content := `domain: corp.test
concurrency: 25
retries: 0
headless: true
sources:
  - crtsh
  - hackertarget
format: jsonl
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	os.Args = []string{"jshound", "-config", path}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.Domain != "corp.test" {
		t.Errorf("Domain from file: got %q", cfg.Domain)
	}
	if cfg.Concurrency != 25 {
		t.Errorf("Concurrency from file: got %d, want 25", cfg.Concurrency)
	}
	if cfg.Retries != 0 {
		t.Errorf("Retries from file: got %d, want 0", cfg.Retries)
	}
	if !cfg.Headless {
		t.Error("Headless should be true from file")
	}
	if len(cfg.Sources) != 2 {
		t.Errorf("Sources from file: got %v", cfg.Sources)
	}
	if cfg.Format != FormatJSONL {
		t.Errorf("Format from file: got %q, want 'jsonl'", cfg.Format)
	}
}

// TestConfigFileFlagPrecedence verifies explicit flags beat the file
func TestConfigFileFlagPrecedence(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	path := filepath.Join(t.TempDir(), "jshound.yaml")
	content := "domain: file.test\nconcurrency: 25\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	os.Args = []string{"jshound", "-config", path, "-d", "flag.test", "-c", "50"}

	cfg, err := ParseFlags()
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.Domain != "flag.test" {
		t.Errorf("Domain: got %q, want flag value 'flag.test'", cfg.Domain)
	}
	if cfg.Concurrency != 50 {
		t.Errorf("Concurrency: got %d, want flag value 50", cfg.Concurrency)
	}
}

// TestConfigFileInvalid verifies bad config files are rejected
func TestConfigFileInvalid(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("domain: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	os.Args = []string{"jshound", "-d", "example.com", "-config", path}

	_, err := ParseFlags()
	if err == nil {
		t.Fatal("ParseFlags should fail on malformed YAML")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	resetFlags()
	os.Args = []string{"jshound", "-d", "example.com",
		"-config", filepath.Join(t.TempDir(), "absent.yaml")}

	if _, err := ParseFlags(); err == nil {
		t.Error("ParseFlags should fail on a missing config file")
	}
}

// TestConfigFileValidated verifies file values face the same checks
func TestConfigFileValidated(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	path := filepath.Join(t.TempDir(), "jshound.yaml")
	if err := os.WriteFile(path, []byte("format: tsv\n"), 0644); err != nil {
		t.Fatal(err)
	}

	os.Args = []string{"jshound", "-d", "example.com", "-config", path}

	_, err := ParseFlags()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for file format, got %v", err)
	}
}
