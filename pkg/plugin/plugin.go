// Package plugin supplies the detection rule surface: built-in rule
// providers, YAML rule files, and sandboxed Tengo scripts. A Registry
// collects providers and freezes the combined rule list at scan start
// so plugins loaded mid-run never apply retroactively.
package plugin

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/regexcache"
)

// Rule is one compiled detection pattern. Severity is a static
// property of the rule, never derived from match content.
type Rule struct {
	ID          string
	Plugin      string
	Pattern     *regexp.Regexp
	Severity    finding.Severity
	Description string
}

// Provider supplies a named, versioned rule set.
type Provider interface {
	// Name returns the unique provider name.
	Name() string

	// Version returns the provider version.
	Version() string

	// Rules returns the provider's compiled rules.
	Rules() []Rule
}

// Info describes a registered provider.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   int    `json:"rules"`
}

// Registry collects providers and freezes their combined rules once.
type Registry struct {
	mu        sync.Mutex
	providers []Provider
	frozen    []Rule
	loaded    bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry returns a registry with every built-in provider
// registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range Builtins() {
		r.Register(p)
	}
	return r
}

// Register adds a provider. Registration fails once Load has frozen
// the rule list.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return fmt.Errorf("plugin: registry frozen, cannot register %s", p.Name())
	}
	r.providers = append(r.providers, p)
	return nil
}

// Providers lists registered providers in registration order.
func (r *Registry) Providers() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]Info, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, Info{
			Name:    p.Name(),
			Version: p.Version(),
			Rules:   len(p.Rules()),
		})
	}
	return infos
}

// Load builds the frozen rule list. The first call freezes the
// registry; later calls return the same rules. Duplicate rule IDs
// across providers and an empty rule set are configuration errors.
func (r *Registry) Load() ([]Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return append([]Rule(nil), r.frozen...), nil
	}

	seen := make(map[string]string)
	var rules []Rule
	for _, p := range r.providers {
		for _, rule := range p.Rules() {
			if prev, ok := seen[rule.ID]; ok {
				return nil, fmt.Errorf("plugin: duplicate rule id %q from %s (already provided by %s)", rule.ID, p.Name(), prev)
			}
			seen[rule.ID] = p.Name()
			if rule.Plugin == "" {
				rule.Plugin = p.Name()
			}
			rules = append(rules, rule)
		}
	}
	if len(rules) == 0 {
		return nil, finding.ErrNoRules
	}

	r.frozen = rules
	r.loaded = true
	return append([]Rule(nil), rules...), nil
}

// Filter removes providers whose name appears in disabled,
// case-insensitively.
func Filter(providers []Provider, disabled []string) []Provider {
	if len(disabled) == 0 {
		return providers
	}
	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[strings.ToLower(strings.TrimSpace(name))] = true
	}

	var kept []Provider
	for _, p := range providers {
		if skip[strings.ToLower(p.Name())] {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// compilePattern compiles a rule pattern through the shared cache.
// Matching is case-insensitive for every rule source so minified and
// case-mangled bundles still match.
func compilePattern(expr string) (*regexp.Regexp, error) {
	return regexcache.Get(caseInsensitive(expr))
}

func caseInsensitive(expr string) string {
	if strings.HasPrefix(expr, "(?i)") {
		return expr
	}
	return "(?i)" + expr
}
