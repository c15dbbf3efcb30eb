// Package strutil provides small string helpers shared by display code.
package strutil

import "unicode/utf8"

// Truncate cuts s to max runes, ellipsis included. Strings at or under
// the limit come back unchanged, and multi-byte runes are never split.
// max <= 0 returns an empty string.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}
