// Package regexcache memoizes compiled regular expressions. Detection
// rules and discovery extractors evaluate the same patterns for every
// asset; compiling once per pattern instead of once per use keeps the
// hot path off regexp.Compile.
package regexcache

import (
	"regexp"
	"sync"
)

var (
	mu       sync.RWMutex
	compiled = make(map[string]*regexp.Regexp)
)

// Get compiles pattern or returns the cached compilation. Invalid
// patterns are not cached, so a corrected rule retries cleanly.
func Get(pattern string) (*regexp.Regexp, error) {
	mu.RLock()
	re, ok := compiled[pattern]
	mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	// A racing caller may have beaten us here; keep the first entry so
	// every caller shares one *Regexp.
	if prior, ok := compiled[pattern]; ok {
		re = prior
	} else {
		compiled[pattern] = re
	}
	mu.Unlock()
	return re, nil
}

// MustGet is Get for patterns known good at compile time. It panics on
// a bad pattern.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// Clear drops every cached compilation. Tests use it to isolate cache
// state.
func Clear() {
	mu.Lock()
	compiled = make(map[string]*regexp.Regexp)
	mu.Unlock()
}

// Size reports how many patterns are cached.
func Size() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(compiled)
}
