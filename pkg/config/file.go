package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML config file schema. Keys mirror the long flag
// names. Export paths are per-run artifacts and stay flag-only.
type File struct {
	Domain     string   `yaml:"domain"`
	Subdomains []string `yaml:"subdomains"`
	List       string   `yaml:"list"`

	Concurrency int  `yaml:"concurrency"`
	RateLimit   int  `yaml:"rate_limit"`
	HostRate    int  `yaml:"host_rate"`
	Timeout     int  `yaml:"timeout"` // seconds
	Retries     *int `yaml:"retries"` // pointer: 0 is a real setting

	APIKey         string   `yaml:"api_key"`
	Sources        []string `yaml:"sources"`
	ExcludeSources []string `yaml:"exclude_sources"`

	IncludeCDN bool `yaml:"include_cdn"`
	Headless   bool `yaml:"headless"`

	Plugins        []string `yaml:"plugins"`
	ExcludePlugins []string `yaml:"exclude_plugins"`
	Rules          string   `yaml:"rules"`
	PluginDir      string   `yaml:"plugin_dir"`
	Policy         string   `yaml:"policy"`

	Proxy    string `yaml:"proxy"`
	MimicTLS bool   `yaml:"mimic_tls"`

	Output  string `yaml:"output"`
	Format  string `yaml:"format"`
	Silent  bool   `yaml:"silent"`
	Verbose bool   `yaml:"verbose"`
	NoColor bool   `yaml:"no_color"`

	MetricsPort  int    `yaml:"metrics_port"`
	OTelEndpoint string `yaml:"otel_endpoint"`
	OTelInsecure bool   `yaml:"otel_insecure"`

	ExitOnError    bool `yaml:"exit_on_error"`
	ErrorThreshold int  `yaml:"error_threshold"`
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return &f, nil
}

// applyFile merges file values under the flags: a value applies only
// when none of its flag spellings were passed on the command line.
func (c *Config) applyFile(path string, set map[string]bool) error {
	f, err := LoadFile(path)
	if err != nil {
		return err
	}

	open := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return false
			}
		}
		return true
	}

	if f.Domain != "" && open("domain", "d") {
		c.Domain = f.Domain
	}
	if len(f.Subdomains) > 0 && open("sub") {
		c.Subdomains = f.Subdomains
	}
	if f.List != "" && open("list", "l") {
		c.ListFile = f.List
	}

	if f.Concurrency > 0 && open("concurrency", "c") {
		c.Concurrency = f.Concurrency
	}
	if f.RateLimit > 0 && open("rate-limit", "rl") {
		c.RateLimit = f.RateLimit
	}
	if f.HostRate > 0 && open("host-rate") {
		c.PerHostRate = f.HostRate
	}
	if f.Timeout > 0 && open("timeout", "t") {
		c.Timeout = time.Duration(f.Timeout) * time.Second
	}
	if f.Retries != nil && open("retries", "r") {
		c.Retries = *f.Retries
	}

	if f.APIKey != "" && open("api-key") {
		c.SecurityTrailsKey = f.APIKey
	}
	if len(f.Sources) > 0 && open("sources") {
		c.Sources = f.Sources
	}
	if len(f.ExcludeSources) > 0 && open("exclude-sources") {
		c.ExcludeSources = f.ExcludeSources
	}

	if f.IncludeCDN && open("include-cdn") {
		c.IncludeCDN = true
	}
	if f.Headless && open("headless") {
		c.Headless = true
	}

	if len(f.Plugins) > 0 && open("plugins") {
		c.Plugins = f.Plugins
	}
	if len(f.ExcludePlugins) > 0 && open("exclude-plugins") {
		c.ExcludePlugins = f.ExcludePlugins
	}
	if f.Rules != "" && open("rules") {
		c.RulesPath = f.Rules
	}
	if f.PluginDir != "" && open("plugin-dir") {
		c.ScriptDir = f.PluginDir
	}
	if f.Policy != "" && open("policy") {
		c.PolicyFile = f.Policy
	}

	if f.Proxy != "" && open("proxy", "x") {
		c.Proxy = f.Proxy
	}
	if f.MimicTLS && open("mimic-tls") {
		c.MimicTLS = true
	}

	if f.Output != "" && open("output", "o") {
		c.OutputDir = f.Output
	}
	if f.Format != "" && open("format") {
		c.Format = f.Format
	}
	if f.Silent && open("silent", "s") {
		c.Silent = true
	}
	if f.Verbose && open("verbose", "v") {
		c.Verbose = true
	}
	if f.NoColor && open("no-color", "nc") {
		c.NoColor = true
	}

	if f.MetricsPort > 0 && open("metrics-port") {
		c.MetricsPort = f.MetricsPort
	}
	if f.OTelEndpoint != "" && open("otel-endpoint") {
		c.OTelEndpoint = f.OTelEndpoint
	}
	if f.OTelInsecure && open("otel-insecure") {
		c.OTelInsecure = true
	}

	if f.ExitOnError && open("exit-on-error") {
		c.ExitOnError = true
	}
	if f.ErrorThreshold > 0 && open("error-threshold") {
		c.ErrorThreshold = f.ErrorThreshold
	}

	return nil
}
