package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jshound/jshound/pkg/finding"
)

// YAMLProvider is a rule set loaded from a YAML rules file:
//
//	name: team-rules
//	version: 2024.1
//	rules:
//	  - id: internal-token
//	    pattern: itk_[a-z0-9]{20}
//	    severity: high
//	    description: Internal service token
type YAMLProvider struct {
	name    string
	version string
	rules   []Rule
}

func (p *YAMLProvider) Name() string    { return p.name }
func (p *YAMLProvider) Version() string { return p.version }

func (p *YAMLProvider) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

type ruleFile struct {
	Name    string      `yaml:"name,omitempty"`
	Version string      `yaml:"version,omitempty"`
	Rules   []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	ID          string `yaml:"id"`
	Pattern     string `yaml:"pattern"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description,omitempty"`
}

// LoadRuleFile parses one YAML rules file into a provider. Every entry
// needs id, pattern, and severity; errors name the file and the rule
// that failed. The provider name defaults to the file's base name.
func LoadRuleFile(path string) (*YAMLProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s: no rules defined", path)
	}

	name := rf.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	version := rf.Version
	if version == "" {
		version = "1.0.0"
	}

	rules := make([]Rule, 0, len(rf.Rules))
	for i, entry := range rf.Rules {
		if entry.ID == "" {
			return nil, fmt.Errorf("rules file %s: rule %d: missing id", path, i)
		}
		if entry.Pattern == "" {
			return nil, fmt.Errorf("rules file %s: rule %q: missing pattern", path, entry.ID)
		}
		sev, err := finding.ParseSeverity(entry.Severity)
		if err != nil {
			return nil, fmt.Errorf("rules file %s: rule %q: %w", path, entry.ID, err)
		}
		re, err := compilePattern(entry.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rules file %s: rule %q: invalid pattern: %w", path, entry.ID, err)
		}
		rules = append(rules, Rule{
			ID:          entry.ID,
			Pattern:     re,
			Severity:    sev,
			Description: entry.Description,
		})
	}

	return &YAMLProvider{name: name, version: version, rules: rules}, nil
}

// LoadRuleDir loads every .yaml/.yml file in dir. Files that fail to
// load are reported as errors without blocking the rest.
func LoadRuleDir(dir string) ([]*YAMLProvider, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("read rules dir %s: %w", dir, err)}
	}

	var providers []*YAMLProvider
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		p, err := LoadRuleFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		providers = append(providers, p)
	}
	return providers, errs
}
