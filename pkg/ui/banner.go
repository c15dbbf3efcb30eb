package ui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Build identity. Release builds stamp these through ldflags:
//
//	go build -ldflags "-X github.com/jshound/jshound/pkg/ui.Version=1.4.0"
var (
	Version   = "1.3.0"
	BuildDate = "2026-08-11"
	Commit    = "dev"
)

const Website = "github.com/jshound/jshound"

var (
	silentMode  bool
	noColorMode bool
	uiMu        sync.RWMutex
)

// SetSilent suppresses the banner and progress output. Finding lines
// still print.
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent reports whether silent mode is on.
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor strips color from all subsequent output.
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		// The Ascii profile makes every Render a passthrough.
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor reports whether color is off.
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// All decoration goes to stderr. stdout carries only findings and
// reports, so pipelines stay parseable.
func decor(s string) {
	fmt.Fprintln(os.Stderr, s)
}

const bannerArt = `
       _      __                          __
      (_)____/ /_  ____  __  ______  ____/ /
     / / ___/ __ \/ __ \/ / / / __ \/ __  /
    / (__  ) / / / /_/ / /_/ / / / / /_/ /
 __/ /____/_/ /_/\____/\__,_/_/ /_/\__,_/
/___/
`

const boxRule = "________________________________________________"

// PrintBanner renders the full startup banner with version and
// project link.
func PrintBanner() {
	if IsSilent() {
		return
	}
	for _, line := range strings.Split(bannerArt, "\n") {
		if line != "" {
			decor(BannerStyle.Render(line))
		}
	}
	decor(fmt.Sprintf("                  v%s", VersionStyle.Render(Version)))
	decor(fmt.Sprintf("\n\t\t%s\n", Website))
}

// PrintMiniBanner renders the compact boxed banner.
func PrintMiniBanner() {
	if IsSilent() {
		return
	}
	decor(BannerStyle.Render(fmt.Sprintf("\n%s\n\n jshound v%s\n%s", boxRule, Version, boxRule)))
	decor("")
}

// PrintConfigBanner lists the effective configuration before the scan
// starts, one " :: key : value" line each. Known keys print in a fixed
// order so repeat runs diff cleanly; anything else follows.
func PrintConfigBanner(options map[string]string) {
	if IsSilent() {
		return
	}

	known := []string{
		"Target", "Sources", "Plugins", "Rules",
		"Concurrency", "Rate Limit", "Timeout",
		"Output Dir", "Output", "Format", "Proxy",
	}

	emit := func(name, value string) {
		decor(fmt.Sprintf(" :: %-20s : %s", ConfigLabelStyle.Render(name), ConfigValueStyle.Render(value)))
	}

	done := make(map[string]bool)
	for _, name := range known {
		if value := options[name]; value != "" {
			emit(name, value)
			done[name] = true
		}
	}
	for name, value := range options {
		if !done[name] && value != "" {
			emit(name, value)
		}
	}

	decor(DividerStyle.Render(boxRule))
	decor("")
}

// PrintDivider draws a horizontal rule.
func PrintDivider() {
	decor(DividerStyle.Render(strings.Repeat("-", 75)))
}

// PrintSection opens a titled section.
func PrintSection(title string) {
	decor("")
	decor(SectionStyle.Render("> " + title))
	PrintDivider()
}

// PrintHelp prints a contextual hint.
func PrintHelp(text string) {
	decor(HelpStyle.Render("  [i] " + text))
}

// PrintSuccess prints a success line.
func PrintSuccess(message string) {
	if IsSilent() {
		return
	}
	decor(SuccessStyle.Render("  [+] " + SanitizeString(message)))
}

// PrintError prints an error line. Errors ignore silent mode.
func PrintError(message string) {
	decor(ErrStyle.Render("  [X] " + SanitizeString(message)))
}

// PrintWarning prints a warning line.
func PrintWarning(message string) {
	if IsSilent() {
		return
	}
	decor(WarningStyle.Render("  [!] " + SanitizeString(message)))
}

// PrintInfo prints a progress note.
func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	decor(fmt.Sprintf("  %s %s", StageStyle.Render("*"), SanitizeString(message)))
}
