package ui

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/term"
)

var (
	unicodeOnce sync.Once
	unicodeOK   bool
)

// UnicodeTerminal reports whether stderr can render Unicode glyphs.
// Piped or redirected output, TERM=dumb, and legacy Windows consoles
// all fail the check. Conhost garbles emoji even under code page 65001
// because its fonts lack the glyphs; Windows Terminal renders them and
// announces itself through WT_SESSION.
func UnicodeTerminal() bool {
	unicodeOnce.Do(func() {
		if os.Getenv("TERM") == "dumb" {
			return
		}
		if !term.IsTerminal(int(os.Stderr.Fd())) {
			return
		}
		if runtime.GOOS == "windows" {
			unicodeOK = os.Getenv("WT_SESSION") != ""
			return
		}
		unicodeOK = true
	})
	return unicodeOK
}

// Icon picks the glyph the terminal can show: ui.Icon("✓", "[+]").
func Icon(unicode, ascii string) string {
	if UnicodeTerminal() {
		return unicode
	}
	return ascii
}

// SanitizeString passes s through untouched on capable terminals and
// strips the runes legacy consoles garble everywhere else. The Print*
// helpers apply it, so callers embed glyphs freely.
func SanitizeString(s string) string {
	if UnicodeTerminal() {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == utf8.RuneError:
			// skip undecodable bytes
		case renderableOnLegacy(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Sanitizef is Sprintf followed by SanitizeString.
func Sanitizef(format string, args ...interface{}) string {
	return SanitizeString(fmt.Sprintf(format, args...))
}

// Fprintf writes sanitized formatted output to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprint(w, Sanitizef(format, args...))
}

// renderableOnLegacy keeps ASCII, Latin-1 and Latin letters, the set
// old conhost fonts actually carry. Emoji, braille spinners, block
// elements, and variation selectors (U+FE00..U+FE0F, which only
// modify a preceding glyph) are dropped.
func renderableOnLegacy(r rune) bool {
	if r >= 0xFE00 && r <= 0xFE0F {
		return false
	}
	if r <= 0xFF {
		return true
	}
	return unicode.Is(unicode.Latin, r)
}
