package finding

import (
	"fmt"
	"strings"
)

// Severity grades a finding's impact. The canonical form is lowercase;
// rule files and plugins may use any casing and are normalized through
// ParseSeverity.
type Severity string

const (
	// Critical covers live credentials with broad blast radius, such
	// as cloud access keys and private key blocks.
	Critical Severity = "critical"

	// High covers exposure needing prompt rotation, such as API
	// tokens and signed JWTs.
	High Severity = "high"

	// Medium covers narrow-scope service keys and internal endpoint
	// disclosure.
	Medium Severity = "medium"

	// Low covers verbose config and minor information leaks.
	Low Severity = "low"

	// Info covers findings with no direct security impact.
	Info Severity = "info"
)

// IsValid reports whether s is one of the canonical levels.
func (s Severity) IsValid() bool {
	switch s {
	case Critical, High, Medium, Low, Info:
		return true
	}
	return false
}

// ParseSeverity maps a rule-file or plugin severity string to its
// canonical form.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", fmt.Errorf("finding: unknown severity %q", s)
	}
	return sev, nil
}

// Score ranks severities for sorting: critical scores 5 down to info
// at 1, with anything unrecognized at 0.
func (s Severity) Score() int {
	switch s {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case Info:
		return 1
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// Ordered lists the severities most severe first, for reports that
// render fixed-order breakdowns.
func Ordered() []Severity {
	return []Severity{Critical, High, Medium, Low, Info}
}

// ToSARIF folds the five levels into SARIF's three result levels
// (https://docs.oasis-open.org/sarif/sarif/v2.1.0/).
func (s Severity) ToSARIF() string {
	switch s {
	case Critical, High:
		return "error"
	case Medium:
		return "warning"
	default:
		return "note"
	}
}

// ToSARIFScore renders the security-severity property GitHub uses for
// its banding: 9.0+ shows critical, 7.0+ high.
func (s Severity) ToSARIFScore() string {
	switch s {
	case Critical:
		return "9.5"
	case High:
		return "8.0"
	case Medium:
		return "5.5"
	case Low:
		return "2.0"
	default:
		return "0.0"
	}
}
