package discovery

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/regexcache"
)

// inlineJsPattern matches quoted .js URLs inside script bodies, the
// common shape of dynamic loader calls.
const inlineJsPattern = `["']([^"']+\.js(?:\?[^"']*)?)["']`

// extractScripts walks the HTML and returns resolved JavaScript URLs
// from <script src> attributes and from quoted references inside
// inline script bodies. Results are deduplicated per page and capped
// at the per-page script limit; malformed markup yields whatever
// parsed up to the error.
func extractScripts(htmlText string, base *url.URL) []string {
	var urls []string
	seen := make(map[string]bool)

	add := func(raw string) {
		if len(urls) >= defaults.MaxScriptsPerPage {
			return
		}
		resolved := resolveURL(raw, base)
		if resolved == "" || !isJavaScriptURL(resolved) || seen[resolved] {
			return
		}
		seen[resolved] = true
		urls = append(urls, resolved)
	}

	z := html.NewTokenizer(strings.NewReader(htmlText))
	var inScript bool

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return urls
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			if t.DataAtom.String() != "script" {
				continue
			}
			if src := getAttr(t, "src"); src != "" {
				add(src)
			} else if tt == html.StartTagToken {
				inScript = true
			}
		case html.EndTagToken:
			if z.Token().DataAtom.String() == "script" {
				inScript = false
			}
		case html.TextToken:
			if !inScript {
				continue
			}
			re := regexcache.MustGet(inlineJsPattern)
			for _, m := range re.FindAllStringSubmatch(z.Token().Data, -1) {
				add(m[1])
			}
		}
	}
}

func getAttr(t html.Token, name string) string {
	for _, a := range t.Attr {
		if a.Key == name {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// resolveURL resolves href against the page URL, dropping fragments,
// non-http(s) schemes, and pseudo-URLs.
func resolveURL(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// jsExtensions are extensions served as JavaScript.
var jsExtensions = []string{".js", ".jsx", ".mjs"}

// isJavaScriptURL reports whether the URL plausibly serves JavaScript:
// a script extension, or a script-directory path that is not some
// other asset type.
func isJavaScriptURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)

	for _, ext := range jsExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if strings.Contains(path, "/js/") ||
		strings.Contains(path, "/javascript/") ||
		strings.Contains(path, "/scripts/") {
		for _, ext := range []string{".css", ".html", ".json", ".xml"} {
			if strings.HasSuffix(path, ext) {
				return false
			}
		}
		return true
	}

	return false
}

// sameRegistrableDomain reports whether the asset URL's registrable
// domain matches the page's. Subdomains of one site compare equal;
// third-party CDNs do not.
func sameRegistrableDomain(rawURL string, base *url.URL) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return registrableDomain(u.Hostname()) == registrableDomain(base.Hostname())
}

// registrableDomain returns the eTLD+1 for a host, handling multi-part
// public suffixes like .co.uk. Hosts without one (IPs, localhost) fall
// back to their last two labels.
func registrableDomain(host string) string {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		parts := strings.Split(host, ".")
		if len(parts) >= 2 {
			return strings.Join(parts[len(parts)-2:], ".")
		}
		return host
	}
	return domain
}
