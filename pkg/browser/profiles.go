// Package browser provides browser fingerprint profiles for page and
// asset retrieval. CDN edges and bot-protection layers serve different
// HTML (or none at all) to clients that don't look like a real browser,
// so discovery requests carry a full header profile rather than a bare
// User-Agent.
package browser

import (
	"math/rand/v2"
	"net/http"

	"github.com/jshound/jshound/pkg/defaults"
)

// Profile represents a browser fingerprint profile
type Profile struct {
	Name      string
	UserAgent string
	Headers   map[string]string
}

// Common browser profiles
var (
	Chrome = &Profile{
		Name:      "chrome",
		UserAgent: defaults.UAChrome,
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"Sec-Ch-Ua":                 `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
			"Sec-Ch-Ua-Mobile":          "?0",
			"Sec-Ch-Ua-Platform":        `"Windows"`,
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
			"Upgrade-Insecure-Requests": "1",
		},
	}

	ChromeMac = &Profile{
		Name:      "chrome-mac",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"Sec-Ch-Ua":                 `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
			"Sec-Ch-Ua-Mobile":          "?0",
			"Sec-Ch-Ua-Platform":        `"macOS"`,
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
			"Upgrade-Insecure-Requests": "1",
		},
	}

	ChromeLinux = &Profile{
		Name:      "chrome-linux",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"Sec-Ch-Ua":                 `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
			"Sec-Ch-Ua-Mobile":          "?0",
			"Sec-Ch-Ua-Platform":        `"Linux"`,
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
			"Upgrade-Insecure-Requests": "1",
		},
	}

	Firefox = &Profile{
		Name:      "firefox",
		UserAgent: defaults.UAFirefox,
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.5",
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
		},
	}

	FirefoxMac = &Profile{
		Name:      "firefox-mac",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.5",
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
		},
	}

	Safari = &Profile{
		Name:      "safari",
		UserAgent: defaults.UASafari,
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"Upgrade-Insecure-Requests": "1",
		},
	}

	SafariMobile = &Profile{
		Name:      "safari-mobile",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	}

	Edge = &Profile{
		Name:      "edge",
		UserAgent: defaults.UAEdge,
		Headers: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
			"Accept-Language":           "en-US,en;q=0.9",
			"Sec-Ch-Ua":                 `"Not_A Brand";v="8", "Chromium";v="120", "Microsoft Edge";v="120"`,
			"Sec-Ch-Ua-Mobile":          "?0",
			"Sec-Ch-Ua-Platform":        `"Windows"`,
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-User":            "?1",
			"Upgrade-Insecure-Requests": "1",
		},
	}
)

// AllProfiles returns all available browser profiles
func AllProfiles() []*Profile {
	return []*Profile{Chrome, ChromeMac, ChromeLinux, Firefox, FirefoxMac, Safari, SafariMobile, Edge}
}

// ByName returns the profile with the given name, or nil if unknown.
func ByName(name string) *Profile {
	for _, p := range AllProfiles() {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Random returns a randomly selected profile.
func Random() *Profile {
	all := AllProfiles()
	return all[rand.IntN(len(all))]
}

// UserAgents returns the User-Agent strings of all profiles.
// Used by the HTTP client layer for per-request rotation.
func UserAgents() []string {
	all := AllProfiles()
	uas := make([]string, len(all))
	for i, p := range all {
		uas[i] = p.UserAgent
	}
	return uas
}

// Apply sets the profile's User-Agent and fingerprint headers on h.
// Headers already present are overwritten so a profile is applied
// consistently, not blended with a previous one.
func (p *Profile) Apply(h http.Header) {
	if p == nil {
		return
	}
	h.Set("User-Agent", p.UserAgent)
	for k, v := range p.Headers {
		h.Set(k, v)
	}
}
