// Package subdomain provides hostname canonicalization and the
// deduplicated subdomain set shared by all enumeration sources.
package subdomain

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

var validHostRegex = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// Canonicalize normalizes a raw hostname: lowercase, surrounding
// whitespace trimmed, wildcard prefixes and trailing dots stripped.
// Idempotent, so canonical keys can be re-canonicalized safely.
func Canonicalize(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	for strings.HasPrefix(h, "*.") {
		h = h[2:]
	}
	return strings.TrimRight(h, ".")
}

// IsValid reports whether host is a syntactically valid DNS name:
// dot-separated labels of letters, digits, and inner hyphens, each at
// most 63 octets, ending in an alphabetic TLD.
func IsValid(host string) bool {
	return validHostRegex.MatchString(host)
}

// InDomain reports whether host falls under root. Both inputs are
// canonicalized first. The comparison is label-aware: notexample.com
// is not in example.com, but example.com itself is.
func InDomain(host, root string) bool {
	h := Canonicalize(host)
	r := Canonicalize(root)
	if h == "" || r == "" {
		return false
	}
	return h == r || strings.HasSuffix(h, "."+r)
}

// Set is a concurrent-safe, insert-if-absent collection of canonical
// hostnames. Duplicate inserts of the same canonical key are no-ops,
// so concurrent writers need no coordination beyond Add itself.
type Set struct {
	mu    sync.RWMutex
	hosts map[string]bool
}

// NewSet creates an empty subdomain set.
func NewSet() *Set {
	return &Set{hosts: make(map[string]bool)}
}

// Add canonicalizes host and inserts it, reporting whether the entry
// was newly inserted. Hosts that canonicalize to the empty string are
// rejected. Exactly one concurrent Add of a given key returns true.
func (s *Set) Add(host string) bool {
	h := Canonicalize(host)
	if h == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hosts[h] {
		return false
	}
	s.hosts[h] = true
	return true
}

// Contains reports whether the canonical form of host is in the set.
func (s *Set) Contains(host string) bool {
	h := Canonicalize(host)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hosts[h]
}

// Len returns the number of entries.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hosts)
}

// Sorted returns the entries in lexicographic order. The slice is a
// fresh copy, safe for the caller to retain or mutate.
func (s *Set) Sorted() []string {
	s.mu.RLock()
	hosts := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		hosts = append(hosts, h)
	}
	s.mu.RUnlock()

	sort.Strings(hosts)
	return hosts
}
