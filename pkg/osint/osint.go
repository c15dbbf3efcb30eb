// Package osint enumerates subdomains from external data sources:
// certificate-transparency logs, passive-DNS APIs, and optional local
// reconnaissance tools. Every source is independently unreliable; the
// manager merges whatever arrives and never fails wholesale because
// one source did.
package osint

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/subdomain"
)

// Source identifies an enumeration data source.
type Source string

const (
	SourceCrtsh          Source = "crtsh"
	SourceSecurityTrails Source = "securitytrails"
	SourceHackerTarget   Source = "hackertarget"
	SourceAssetfinder    Source = "assetfinder"
	SourceSubfinder      Source = "subfinder"
)

// ErrNoSources is returned by Enumerate when nothing is registered.
// An enumeration with zero sources would silently produce just the
// root domain, which is never what the caller meant.
var ErrNoSources = errors.New("osint: no sources configured")

// Client is one enumeration source.
type Client interface {
	// Name identifies the source in logs and error aggregation.
	Name() Source

	// Validate checks the client is usable (API key present, etc.).
	// A missing optional binary is not a validation failure; tool
	// adapters report that as an empty result at fetch time instead.
	Validate() error

	// FetchSubdomains returns raw hostnames for the domain. Entries may
	// contain wildcards, duplicates, or garbage; the manager
	// canonicalizes and filters during the merge.
	FetchSubdomains(ctx context.Context, domain string) ([]string, error)
}

// SourceConfig configures one source registration.
type SourceConfig struct {
	Source  Source `json:"source"`
	APIKey  string `json:"api_key,omitempty"`
	Enabled bool   `json:"enabled"`

	// RateLimit caps this source's queries in requests per minute
	// (0 = unlimited). Free OSINT tiers throttle hard; staying under
	// their ceiling beats retrying 429s.
	RateLimit int `json:"rate_limit"`
}

type registration struct {
	client  Client
	limiter *rate.Limiter
}

// Manager fans enumeration out across registered sources and merges
// the results into one canonical subdomain set.
type Manager struct {
	mu      sync.RWMutex
	sources map[Source]registration
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{sources: make(map[Source]registration)}
}

// NewDefaultManager registers every keyless source plus SecurityTrails
// when an API key is supplied. Tool adapters degrade to empty results
// when their binary is not installed.
func NewDefaultManager(securityTrailsKey string) (*Manager, error) {
	m := NewManager()

	configs := []SourceConfig{
		{Source: SourceCrtsh, Enabled: true, RateLimit: defaults.SourceRateLimit},
		{Source: SourceHackerTarget, Enabled: true, RateLimit: defaults.SourceRateLimitStrict},
		{Source: SourceAssetfinder, Enabled: true},
		{Source: SourceSubfinder, Enabled: true},
	}
	if securityTrailsKey != "" {
		configs = append(configs, SourceConfig{
			Source:    SourceSecurityTrails,
			APIKey:    securityTrailsKey,
			Enabled:   true,
			RateLimit: defaults.SourceRateLimit,
		})
	}

	for _, cfg := range configs {
		if err := m.RegisterSource(cfg); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RegisterSource registers a source. Disabled configs are accepted and
// ignored. Registration fails when the source is unknown or its client
// does not validate.
func (m *Manager) RegisterSource(config SourceConfig) error {
	if !config.Enabled {
		return nil
	}

	var client Client
	switch config.Source {
	case SourceCrtsh:
		client = NewCrtshClient()
	case SourceSecurityTrails:
		client = NewSecurityTrailsClient(config.APIKey)
	case SourceHackerTarget:
		client = NewHackerTargetClient()
	case SourceAssetfinder:
		client = NewAssetfinderClient()
	case SourceSubfinder:
		client = NewSubfinderClient()
	default:
		return fmt.Errorf("osint: unknown source: %s", config.Source)
	}

	if err := client.Validate(); err != nil {
		return fmt.Errorf("osint: source %s validation failed: %w", config.Source, err)
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		perMinute := rate.Limit(float64(config.RateLimit) / 60.0)
		limiter = rate.NewLimiter(perMinute, 1)
	}

	m.mu.Lock()
	m.sources[config.Source] = registration{client: client, limiter: limiter}
	m.mu.Unlock()
	return nil
}

// Register adds an already-built client, mainly for tests and custom
// sources.
func (m *Manager) Register(client Client, requestsPerMinute int) {
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}
	m.mu.Lock()
	m.sources[client.Name()] = registration{client: client, limiter: limiter}
	m.mu.Unlock()
}

// Sources returns the registered source names.
func (m *Manager) Sources() []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]Source, 0, len(m.sources))
	for s := range m.sources {
		names = append(names, s)
	}
	return names
}

// Enumerate queries every registered source concurrently and merges
// the responses into a canonical set. Raw hostnames are canonicalized,
// syntax-checked, and scope-filtered against the root domain; the root
// itself is always a member. Per-source failures are joined into the
// returned error but the set is valid regardless: one dead source
// never costs the results of the others.
func (m *Manager) Enumerate(ctx context.Context, domain string) (*subdomain.Set, error) {
	root := subdomain.Canonicalize(domain)
	if root == "" || !subdomain.IsValid(root) {
		return nil, fmt.Errorf("osint: invalid domain %q", domain)
	}

	m.mu.RLock()
	regs := make([]registration, 0, len(m.sources))
	for _, r := range m.sources {
		regs = append(regs, r)
	}
	m.mu.RUnlock()

	if len(regs) == 0 {
		return nil, ErrNoSources
	}

	set := subdomain.NewSet()
	set.Add(root)

	var wg sync.WaitGroup
	errChan := make(chan error, len(regs))

	for _, reg := range regs {
		wg.Add(1)
		go func(reg registration) {
			defer wg.Done()

			if reg.limiter != nil {
				if err := reg.limiter.Wait(ctx); err != nil {
					errChan <- fmt.Errorf("%s: %w", reg.client.Name(), err)
					return
				}
			}

			hosts, err := reg.client.FetchSubdomains(ctx, root)
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", reg.client.Name(), err)
				return
			}
			if len(hosts) > defaults.MaxSourceResults {
				// A runaway source (wildcard certs, mostly) cannot flood
				// the merge.
				hosts = hosts[:defaults.MaxSourceResults]
			}

			for _, h := range hosts {
				h = subdomain.Canonicalize(h)
				if h == "" || !subdomain.IsValid(h) || !subdomain.InDomain(h, root) {
					continue
				}
				set.Add(h)
			}
		}(reg)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return set, errors.Join(errs...)
}

// ExtractDomainFromURL pulls the hostname out of a URL or bare domain,
// so targets can be given either way.
func ExtractDomainFromURL(rawURL string) (string, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}
