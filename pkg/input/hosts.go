// Package input gathers a prepared crawl host list from flags, list
// files, and piped stdin. It exists for scans that already know their
// subdomains and want to skip enumeration.
package input

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jshound/jshound/pkg/subdomain"
)

// HostSource consolidates the ways a host list reaches the scanner.
type HostSource struct {
	Hosts    []string // from repeated -sub flags
	ListFile string   // newline-delimited hosts, # starts a comment
	Stdin    bool     // also read piped stdin, ignored on a terminal
}

// Gather returns the canonical host list in first-seen order: flag
// values, then the list file, then stdin. Blank lines, comments, and
// entries that canonicalize to nothing are dropped; a duplicate keeps
// its first position.
func (hs *HostSource) Gather() ([]string, error) {
	var hosts []string
	seen := make(map[string]bool)

	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			return
		}
		host := subdomain.Canonicalize(raw)
		if host == "" || seen[host] {
			return
		}
		seen[host] = true
		hosts = append(hosts, host)
	}

	for _, h := range hs.Hosts {
		add(h)
	}

	if hs.ListFile != "" {
		lines, err := readLines(hs.ListFile)
		if err != nil {
			return nil, fmt.Errorf("input: list file: %w", err)
		}
		for _, line := range lines {
			add(line)
		}
	}

	if hs.Stdin {
		lines, err := readPipedStdin()
		if err != nil {
			return nil, fmt.Errorf("input: stdin: %w", err)
		}
		for _, line := range lines {
			add(line)
		}
	}

	return hosts, nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// readPipedStdin reads stdin only when it is a pipe, so an interactive
// run with -stdin does not hang waiting for input.
func readPipedStdin() ([]string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, nil
	}

	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
