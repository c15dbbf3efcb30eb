package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jshound/jshound/pkg/strutil"
)

// Summary holds scan totals for the closing report box.
type Summary struct {
	Domain       string
	Subdomains   int
	Assets       int
	Downloaded   int
	Duplicates   int
	Failed       int
	Findings     int
	RuleFailures int
	BySeverity   map[string]int
	Duration     time.Duration
}

// severityOrder fixes the display order for breakdown rows.
var severityOrder = []string{"critical", "high", "medium", "low", "info"}

// PrintSummary prints the closing summary box to stderr.
func PrintSummary(s Summary) {
	if IsSilent() {
		return
	}

	fmt.Fprintln(os.Stderr)
	PrintSection("Scan Summary")
	fmt.Fprintln(os.Stderr)

	fmt.Fprintf(os.Stderr, "  %s %s\n",
		ConfigLabelStyle.Render("Target:"),
		URLStyle.Render(s.Domain),
	)
	fmt.Fprintln(os.Stderr)

	// Simple ASCII box avoids Unicode width issues on legacy consoles.
	const boxWidth = 50
	border := "+" + strings.Repeat("-", boxWidth-2) + "+"

	printRow := func(label, value string, valueStyle lipgloss.Style) {
		const labelW = 18
		const totalInner = 46

		labelPadded := label
		for len(labelPadded) < labelW {
			labelPadded += " "
		}

		valueW := totalInner - labelW
		valuePadded := strutil.Truncate(value, valueW)
		for len([]rune(valuePadded)) < valueW {
			valuePadded += " "
		}

		fmt.Fprintf(os.Stderr, "  |  %s%s|\n",
			StatLabelStyle.Render(labelPadded),
			valueStyle.Render(valuePadded),
		)
	}

	fmt.Fprintln(os.Stderr, BracketStyle.Render("  "+border))

	printRow("Subdomains:", fmt.Sprintf("%d", s.Subdomains), StatValueStyle)
	printRow("JS Assets:", fmt.Sprintf("%d", s.Assets), StatValueStyle)
	printRow("Downloaded:", fmt.Sprintf("%d", s.Downloaded), StoredStyle)
	if s.Duplicates > 0 {
		printRow("Duplicates:", fmt.Sprintf("%d", s.Duplicates), DuplicateStyle)
	}
	if s.Failed > 0 {
		printRow("Failed:", fmt.Sprintf("%d", s.Failed), FailedStyle)
	}

	fmt.Fprintln(os.Stderr, BracketStyle.Render("  "+border))

	findingStyle := SuccessStyle
	if s.Findings > 0 {
		findingStyle = FailedStyle
	}
	printRow("Findings:", fmt.Sprintf("%d", s.Findings), findingStyle)

	for _, sev := range severityOrder {
		if count := s.BySeverity[sev]; count > 0 {
			printRow("  "+sev+":", fmt.Sprintf("%d", count), SeverityStyle(sev))
		}
	}

	if s.RuleFailures > 0 {
		printRow("Rule failures:", fmt.Sprintf("%d", s.RuleFailures), WarningStyle)
	}

	fmt.Fprintln(os.Stderr, BracketStyle.Render("  "+border))

	printRow("Duration:", FormatDuration(s.Duration), StatValueStyle)

	fmt.Fprintln(os.Stderr, BracketStyle.Render("  "+border))

	// Verdict line
	fmt.Fprintln(os.Stderr)
	switch {
	case s.Findings > 0:
		PrintError(fmt.Sprintf("%d potential secrets exposed - rotate affected credentials", s.Findings))
	case s.Downloaded == 0 && s.Assets > 0:
		PrintWarning("no assets could be downloaded - check connectivity")
	default:
		PrintSuccess("no secrets detected in scanned assets")
	}
	fmt.Fprintln(os.Stderr)
}

// FormatDuration renders a duration compactly: 350ms, 4.2s, 2m05s.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("%dm%02ds", m, s)
	}
}
