// Package discovery crawls live subdomains for the JavaScript they
// load, both as explicit <script src> references and as quoted URLs
// inside inline script bodies.
package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/fetch"
	"github.com/jshound/jshound/pkg/iohelper"
)

// JsAsset is one discovered JavaScript URL, attributed to the
// subdomain it was first seen on. Source is the page that referenced
// it, which differs from Origin in scheme and after redirects.
type JsAsset struct {
	URL        string    `json:"url"`
	Origin     string    `json:"origin"`
	Source     string    `json:"source,omitempty"`
	Discovered time.Time `json:"discovered"`
}

// AssetSet collects assets deduplicated by URL. The first discovery
// wins origin attribution; later sightings of the same URL are no-ops.
type AssetSet struct {
	mu     sync.RWMutex
	assets map[string]JsAsset
}

// NewAssetSet creates an empty asset set.
func NewAssetSet() *AssetSet {
	return &AssetSet{assets: make(map[string]JsAsset)}
}

// Add inserts the asset unless its URL is already present. Returns
// true when the asset was actually inserted.
func (s *AssetSet) Add(asset JsAsset) bool {
	if asset.URL == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[asset.URL]; ok {
		return false
	}
	s.assets[asset.URL] = asset
	return true
}

// Contains reports whether the URL is in the set.
func (s *AssetSet) Contains(rawURL string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assets[rawURL]
	return ok
}

// Get returns the asset stored for the URL.
func (s *AssetSet) Get(rawURL string) (JsAsset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[rawURL]
	return a, ok
}

// Len returns the number of assets.
func (s *AssetSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}

// Assets returns the assets sorted by URL.
func (s *AssetSet) Assets() []JsAsset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JsAsset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// URLs returns the asset URLs sorted lexicographically.
func (s *AssetSet) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.assets))
	for u := range s.assets {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Skip records a subdomain whose page could not be fetched.
type Skip struct {
	Host string
	Err  error
}

// Page is a fetched page body kept for later scanning. Secrets leak
// into inline configuration blobs as often as into bundled scripts, so
// the crawl can retain what it already paid to download.
type Page struct {
	Host string
	URL  string
	Text string
}

// Config holds discoverer configuration.
type Config struct {
	// IncludeCDN admits scripts served from a different registrable
	// domain than the page referencing them.
	IncludeCDN bool

	// Headless additionally renders each page in a browser to catch
	// dynamically injected scripts the static HTML never mentions.
	// Render failures degrade to the static result.
	Headless bool

	// Concurrency bounds subdomains crawled in parallel. Network I/O
	// is further bounded by the shared Fetcher's admission gate.
	Concurrency int

	// MaxBodySize caps how much of a page is read for parsing.
	MaxBodySize int64

	// RetainPages keeps each fetched page body so callers can scan the
	// pages themselves, not just the scripts they reference.
	RetainPages bool
}

// DefaultConfig returns the standard crawl settings.
func DefaultConfig() Config {
	return Config{
		Concurrency: defaults.ConcurrencyMedium,
		MaxBodySize: iohelper.PageMaxBodySize,
	}
}

// Discoverer crawls subdomain root pages through the shared Fetcher
// and extracts the JavaScript they reference.
type Discoverer struct {
	cfg     Config
	fetcher *fetch.Fetcher

	crawled int64
	mu      sync.Mutex
	skipped []Skip
	pages   []Page
}

// New creates a Discoverer issuing requests through fetcher.
func New(cfg Config, fetcher *fetch.Fetcher) *Discoverer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.ConcurrencyMedium
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = iohelper.PageMaxBodySize
	}
	return &Discoverer{cfg: cfg, fetcher: fetcher}
}

// Discover fetches every subdomain's root page concurrently and merges
// the extracted script URLs into one deduplicated set. Unreachable
// subdomains are skipped and recorded, never fatal; cancellation stops
// new work and whatever was collected so far is still returned.
func (d *Discoverer) Discover(ctx context.Context, subs []string) *AssetSet {
	d.mu.Lock()
	d.skipped = nil
	d.pages = nil
	d.mu.Unlock()
	atomic.StoreInt64(&d.crawled, 0)

	set := NewAssetSet()
	if len(subs) == 0 {
		return set
	}

	renderCtx := ctx
	if d.cfg.Headless {
		var cancel context.CancelFunc
		renderCtx, cancel = newBrowserContext(ctx)
		defer cancel()
	}

	sem := make(chan struct{}, d.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				d.recordSkip(host, ctx.Err())
				return
			}
			defer func() { <-sem }()

			d.crawlHost(ctx, renderCtx, host, set)
		}(sub)
	}
	wg.Wait()

	return set
}

// Skipped returns the subdomains the last run could not fetch.
func (d *Discoverer) Skipped() []Skip {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Skip, len(d.skipped))
	copy(out, d.skipped)
	return out
}

// Pages returns the page bodies retained by the last run. Empty unless
// the discoverer was configured with RetainPages.
func (d *Discoverer) Pages() []Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Page, len(d.pages))
	copy(out, d.pages)
	return out
}

// Crawled returns how many pages the last run fetched and parsed.
func (d *Discoverer) Crawled() int {
	return int(atomic.LoadInt64(&d.crawled))
}

func (d *Discoverer) crawlHost(ctx, renderCtx context.Context, host string, set *AssetSet) {
	page, err := d.fetchPage(ctx, host)
	if err != nil {
		d.recordSkip(host, err)
		return
	}
	atomic.AddInt64(&d.crawled, 1)

	// FinalURL is the page's own URL after redirects, the correct base
	// for relative references.
	base, err := url.Parse(page.FinalURL)
	if err != nil {
		d.recordSkip(host, err)
		return
	}

	if d.cfg.RetainPages {
		d.recordPage(Page{Host: host, URL: page.FinalURL, Text: string(page.Body)})
	}

	urls := extractScripts(string(page.Body), base)

	if d.cfg.Headless {
		if rendered, err := renderScripts(renderCtx, page.FinalURL); err == nil {
			for _, raw := range rendered {
				if u := resolveURL(raw, base); u != "" && isJavaScriptURL(u) {
					urls = append(urls, u)
				}
			}
		}
	}

	now := time.Now()
	for _, u := range urls {
		if !d.cfg.IncludeCDN && !sameRegistrableDomain(u, base) {
			continue
		}
		set.Add(JsAsset{URL: u, Origin: host, Source: page.FinalURL, Discovered: now})
	}
}

// fetchPage tries https first and falls back to plain http, keeping
// whichever answers. Both failing skips the subdomain.
func (d *Discoverer) fetchPage(ctx context.Context, host string) (*fetch.Response, error) {
	opts := &fetch.Options{
		MaxBodySize: d.cfg.MaxBodySize,
		Headers:     http.Header{"Accept": {defaults.AcceptHTML}},
	}

	var errs []error
	for _, scheme := range []string{"https", "http"} {
		resp, err := d.fetcher.Get(ctx, scheme+"://"+host+"/", opts)
		if err == nil {
			return resp, nil
		}
		errs = append(errs, err)
		if fetch.IsCanceled(err) {
			break
		}
	}
	return nil, errors.Join(errs...)
}

func (d *Discoverer) recordSkip(host string, err error) {
	d.mu.Lock()
	d.skipped = append(d.skipped, Skip{Host: host, Err: err})
	d.mu.Unlock()
}

func (d *Discoverer) recordPage(page Page) {
	d.mu.Lock()
	d.pages = append(d.pages, page)
	d.mu.Unlock()
}
