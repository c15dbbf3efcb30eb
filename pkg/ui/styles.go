package ui

import "github.com/charmbracelet/lipgloss"

// Raw ANSI sequences for the few paths that bypass lipgloss.
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	BoldRed = "\033[1;31m"
)

// Palette. Severity colors follow the nuclei/OWASP conventions users
// already read at a glance.
var (
	Primary   = lipgloss.Color("#F4A825") // amber brand
	Secondary = lipgloss.Color("#00D4AA") // teal accent
	Ink       = lipgloss.Color("#FAFAFA") // near-white foreground

	Critical = lipgloss.Color("#FF0000")
	High     = lipgloss.Color("#FF6B6B")
	Medium   = lipgloss.Color("#FFD93D")
	Low      = lipgloss.Color("#6BCB77")
	Info     = lipgloss.Color("#4D96FF")

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")

	// Download outcomes
	Stored    = Success
	Duplicate = Muted
	Failed    = Error
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func boldFg(c lipgloss.Color) lipgloss.Style {
	return fg(c).Bold(true)
}

var (
	TitleStyle    = boldFg(Ink).Background(Primary).Padding(0, 1)
	SubtitleStyle = fg(Muted).Italic(true)

	BannerStyle  = boldFg(Primary)
	VersionStyle = boldFg(Secondary)
	SectionStyle = boldFg(Ink).MarginTop(1)

	ConfigLabelStyle = fg(Muted).Width(15)
	ConfigValueStyle = fg(Ink)

	StatLabelStyle = fg(Muted)
	StatValueStyle = boldFg(Ink)

	// Bracketed metadata inside finding lines
	BracketStyle = fg(Muted)

	// Rule ID badge
	RuleStyle = boldFg(Secondary)

	// Enumeration source badge
	SourceStyle = fg(Ink).Background(lipgloss.Color("#3B3B4F")).Padding(0, 1)

	StoredStyle    = boldFg(Stored)
	DuplicateStyle = fg(Duplicate)
	FailedStyle    = boldFg(Failed)

	SuccessStyle = boldFg(Success)
	WarningStyle = boldFg(Warning)
	ErrStyle     = boldFg(Error)

	DividerStyle = fg(Muted)
	HelpStyle    = fg(Muted).Italic(true)
	URLStyle     = fg(Secondary).Underline(true)
	StageStyle   = boldFg(Primary)
)

var severityColors = map[string]lipgloss.Color{
	"critical": Critical,
	"high":     High,
	"medium":   Medium,
	"low":      Low,
	"info":     Info,
}

// SeverityStyle styles a severity badge. It takes the lowercase
// canonical forms from pkg/finding; anything else renders muted.
func SeverityStyle(severity string) lipgloss.Style {
	if c, ok := severityColors[severity]; ok {
		return boldFg(c)
	}
	return boldFg(Muted)
}

// OutcomeStyle styles a download outcome label.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "stored":
		return boldFg(Stored)
	case "duplicate":
		return fg(Duplicate)
	case "failed":
		return boldFg(Failed)
	default:
		return boldFg(Muted)
	}
}
