package osint

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/jsonutil"
	"github.com/jshound/jshound/pkg/subdomain"
)

// ListReport is the JSON shape persisted next to the plain-text list.
type ListReport struct {
	Domain     string   `json:"domain"`
	TotalCount int      `json:"total_count"`
	Subdomains []string `json:"subdomains"`
}

// WriteList writes the set as newline-separated text in lexicographic
// order, so successive scans diff cleanly.
func WriteList(path string, set *subdomain.Set) error {
	if err := os.MkdirAll(filepath.Dir(path), defaults.DirPerm); err != nil {
		return err
	}

	hosts := set.Sorted()
	data := strings.Join(hosts, "\n")
	if len(hosts) > 0 {
		data += "\n"
	}
	return os.WriteFile(path, []byte(data), defaults.FilePerm)
}

// WriteJSON writes the set together with its root domain and count.
func WriteJSON(path, domain string, set *subdomain.Set) error {
	if err := os.MkdirAll(filepath.Dir(path), defaults.DirPerm); err != nil {
		return err
	}

	hosts := set.Sorted()
	report := ListReport{
		Domain:     subdomain.Canonicalize(domain),
		TotalCount: len(hosts),
		Subdomains: hosts,
	}
	return jsonutil.WriteFile(path, report, defaults.FilePerm)
}
