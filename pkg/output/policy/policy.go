package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/finding"
)

// ErrPolicyNotFound is returned when a policy file does not exist.
var ErrPolicyNotFound = errors.New("policy file not found")

// ErrInvalidPolicy is returned when a policy file is malformed.
var ErrInvalidPolicy = errors.New("invalid policy file")

// Policy represents a parsed policy configuration.
type Policy struct {
	Version string     `yaml:"version"`
	Name    string     `yaml:"name"`
	FailOn  FailOn     `yaml:"fail_on"`
	Ignore  IgnoreSpec `yaml:"ignore"`

	mu sync.RWMutex // protects evaluation
}

// FailOn defines conditions that cause a scan to fail.
type FailOn struct {
	Findings                 FindingThresholds `yaml:"findings"`
	Rules                    []string          `yaml:"rules"`
	DownloadFailureRateAbove *float64          `yaml:"download_failure_rate_above"`
}

// FindingThresholds defines maximum allowed findings by severity.
// A nil value means no threshold. A value of N fails the scan once the
// count exceeds N, so 0 fails on the first finding.
type FindingThresholds struct {
	Total    *int `yaml:"total"`
	Critical *int `yaml:"critical"`
	High     *int `yaml:"high"`
	Medium   *int `yaml:"medium"`
	Low      *int `yaml:"low"`
	Info     *int `yaml:"info"`
}

// IgnoreSpec defines findings to exclude from evaluation.
type IgnoreSpec struct {
	Rules   []string `yaml:"rules"`
	Plugins []string `yaml:"plugins"`
}

// ScanStats holds pipeline counters that feed rate-based checks.
type ScanStats struct {
	// Assets is the number of script assets discovered.
	Assets int

	// FailedAssets is the number of assets that could not be downloaded.
	FailedAssets int
}

// PolicyResult contains the outcome of a policy evaluation.
type PolicyResult struct {
	// Pass is true if the policy passed (no failures).
	Pass bool

	// Failures contains human-readable failure messages.
	Failures []string

	// ExitCode is the recommended exit code based on the policy result.
	ExitCode int

	// PolicyName is the name of the evaluated policy.
	PolicyName string

	// Evaluated is the number of findings considered after ignore rules.
	Evaluated int
}

// LoadPolicy loads and parses a policy file from the given path.
// Returns ErrPolicyNotFound if the file doesn't exist.
// Returns ErrInvalidPolicy if the file is malformed.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, path)
		}
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	return ParsePolicy(data)
}

// ParsePolicy parses policy YAML data.
// Returns ErrInvalidPolicy if the data is malformed.
func ParsePolicy(data []byte) (*Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	if policy.Version == "" {
		policy.Version = "1.0"
	}

	// Rule and plugin names match case-insensitively.
	for i := range policy.FailOn.Rules {
		policy.FailOn.Rules[i] = strings.ToLower(policy.FailOn.Rules[i])
	}
	for i := range policy.Ignore.Rules {
		policy.Ignore.Rules[i] = strings.ToLower(policy.Ignore.Rules[i])
	}
	for i := range policy.Ignore.Plugins {
		policy.Ignore.Plugins[i] = strings.ToLower(policy.Ignore.Plugins[i])
	}

	return &policy, nil
}

// Evaluate evaluates the policy against the scan's findings.
// This method is thread-safe.
func (p *Policy) Evaluate(findings []finding.Finding, stats ScanStats) PolicyResult {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := PolicyResult{
		Pass:       true,
		Failures:   make([]string, 0),
		ExitCode:   defaults.ExitSuccess,
		PolicyName: p.Name,
	}

	// Ignore rules drop whole findings before counting, so severity and
	// rule totals stay exact.
	kept := p.applyIgnoreRules(findings)
	result.Evaluated = len(kept)

	p.checkFindingThresholds(&result, kept)
	p.checkRuleFindings(&result, kept)
	p.checkDownloadFailureRate(&result, stats)

	if len(result.Failures) > 0 {
		result.Pass = false
		result.ExitCode = defaults.ExitSecretsFound
	}

	return result
}

// applyIgnoreRules filters out findings matched by the ignore spec.
func (p *Policy) applyIgnoreRules(findings []finding.Finding) []finding.Finding {
	if len(p.Ignore.Rules) == 0 && len(p.Ignore.Plugins) == 0 {
		return findings
	}

	ignoreRules := make(map[string]bool, len(p.Ignore.Rules))
	for _, rule := range p.Ignore.Rules {
		ignoreRules[rule] = true
	}
	ignorePlugins := make(map[string]bool, len(p.Ignore.Plugins))
	for _, plugin := range p.Ignore.Plugins {
		ignorePlugins[plugin] = true
	}

	kept := make([]finding.Finding, 0, len(findings))
	for _, f := range findings {
		if ignoreRules[strings.ToLower(f.Rule)] || ignorePlugins[strings.ToLower(f.Plugin)] {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// checkFindingThresholds checks finding count thresholds.
func (p *Policy) checkFindingThresholds(result *PolicyResult, findings []finding.Finding) {
	thresholds := p.FailOn.Findings

	if thresholds.Total != nil && len(findings) > *thresholds.Total {
		result.Failures = append(result.Failures,
			fmt.Sprintf("total findings (%d) exceeds threshold (%d)",
				len(findings), *thresholds.Total))
	}

	counts := finding.CountBySeverity(findings)
	for _, severity := range finding.Ordered() {
		threshold := p.severityThreshold(severity)
		if threshold == nil {
			continue
		}
		if count := counts[severity]; count > *threshold {
			result.Failures = append(result.Failures,
				fmt.Sprintf("%s findings (%d) exceeds threshold (%d)",
					severity, count, *threshold))
		}
	}
}

// severityThreshold maps a severity to its configured threshold, if any.
func (p *Policy) severityThreshold(severity finding.Severity) *int {
	switch severity {
	case finding.Critical:
		return p.FailOn.Findings.Critical
	case finding.High:
		return p.FailOn.Findings.High
	case finding.Medium:
		return p.FailOn.Findings.Medium
	case finding.Low:
		return p.FailOn.Findings.Low
	case finding.Info:
		return p.FailOn.Findings.Info
	default:
		return nil
	}
}

// checkRuleFindings checks for findings produced by fail-listed rules.
func (p *Policy) checkRuleFindings(result *PolicyResult, findings []finding.Finding) {
	if len(p.FailOn.Rules) == 0 {
		return
	}

	byRule := make(map[string]int, len(findings))
	for _, f := range findings {
		byRule[strings.ToLower(f.Rule)]++
	}

	for _, rule := range p.FailOn.Rules {
		if count := byRule[rule]; count > 0 {
			result.Failures = append(result.Failures,
				fmt.Sprintf("findings detected for rule '%s' (%d found)",
					rule, count))
		}
	}
}

// checkDownloadFailureRate checks the asset download failure rate threshold.
func (p *Policy) checkDownloadFailureRate(result *PolicyResult, stats ScanStats) {
	if p.FailOn.DownloadFailureRateAbove == nil || stats.Assets == 0 {
		return
	}

	rate := float64(stats.FailedAssets) / float64(stats.Assets) * 100
	threshold := *p.FailOn.DownloadFailureRateAbove
	if rate > threshold {
		result.Failures = append(result.Failures,
			fmt.Sprintf("download failure rate (%.1f%%) exceeds threshold (%.1f%%)",
				rate, threshold))
	}
}

// String returns a human-readable representation of the policy.
func (p *Policy) String() string {
	if p.Name != "" {
		return fmt.Sprintf("Policy(%s v%s)", p.Name, p.Version)
	}
	return fmt.Sprintf("Policy(v%s)", p.Version)
}

// intPtr is a helper to create a pointer to an int.
func intPtr(i int) *int {
	return &i
}

// floatPtr is a helper to create a pointer to a float64.
func floatPtr(f float64) *float64 {
	return &f
}
