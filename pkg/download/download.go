// Package download fetches discovered JavaScript assets through the
// shared Fetcher and persists them under a per-subdomain directory
// layout. Identical bodies are stored once.
package download

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spaolacci/murmur3"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/discovery"
	"github.com/jshound/jshound/pkg/fetch"
	"github.com/jshound/jshound/pkg/hosterrors"
	"github.com/jshound/jshound/pkg/iohelper"
	"github.com/jshound/jshound/pkg/regexcache"
)

// Outcome is the per-asset download result. Failures are recorded, not
// fatal to the batch; duplicates carry the path of the body's first
// writer.
type Outcome struct {
	Asset     discovery.JsAsset `json:"asset"`
	Path      string            `json:"path,omitempty"`
	Size      int64             `json:"size"`
	Hash      uint32            `json:"hash,omitempty"`
	Duplicate bool              `json:"duplicate,omitempty"`
	Err       error             `json:"-"`
}

// Config holds downloader configuration.
type Config struct {
	// OutputDir is the base directory; files land under
	// <OutputDir>/<origin-subdomain>/<name>.
	OutputDir string

	// Concurrency bounds parallel downloads. Network I/O is further
	// bounded by the shared Fetcher's admission gate.
	Concurrency int
}

// DefaultConfig returns the standard download settings.
func DefaultConfig() Config {
	return Config{
		OutputDir:   "js_files",
		Concurrency: defaults.ConcurrencyMedium,
	}
}

// Downloader persists assets with deterministic, collision-free paths.
// Hosts that keep timing out are cached as dead so their remaining
// assets fail fast instead of waiting out the full timeout each.
type Downloader struct {
	cfg     Config
	fetcher *fetch.Fetcher
	dead    *hosterrors.Cache

	completed int64
	total     int64

	mu      sync.Mutex
	claimed map[string]bool
	byHash  map[uint32]string
}

// New creates a Downloader issuing requests through fetcher.
func New(cfg Config, fetcher *fetch.Fetcher) *Downloader {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "js_files"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.ConcurrencyMedium
	}
	return &Downloader{
		cfg:     cfg,
		fetcher: fetcher,
		dead:    hosterrors.NewCache(hosterrors.DefaultMaxErrors, hosterrors.DefaultExpiry),
		claimed: make(map[string]bool),
		byHash:  make(map[uint32]string),
	}
}

// DownloadAll fetches every asset concurrently and returns one outcome
// per asset, in input order. A failure on one asset never aborts the
// rest; cancellation marks the remaining assets failed and returns
// what completed.
func (d *Downloader) DownloadAll(ctx context.Context, assets []discovery.JsAsset) []Outcome {
	out := make([]Outcome, len(assets))
	atomic.StoreInt64(&d.total, int64(len(assets)))
	atomic.StoreInt64(&d.completed, 0)

	d.mu.Lock()
	d.claimed = make(map[string]bool)
	d.byHash = make(map[uint32]string)
	d.mu.Unlock()

	sem := make(chan struct{}, d.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset discovery.JsAsset) {
			defer wg.Done()
			defer atomic.AddInt64(&d.completed, 1)

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out[i] = Outcome{Asset: asset, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			out[i] = d.download(ctx, asset)
		}(i, asset)
	}
	wg.Wait()

	return out
}

// Progress returns completed and total counts for the current run.
func (d *Downloader) Progress() (completed, total int64) {
	return atomic.LoadInt64(&d.completed), atomic.LoadInt64(&d.total)
}

func (d *Downloader) download(ctx context.Context, asset discovery.JsAsset) Outcome {
	o := Outcome{Asset: asset}

	if d.dead.Check(asset.URL) {
		o.Err = fmt.Errorf("skipped %s: %w", asset.URL, hosterrors.ErrHostDown)
		return o
	}

	resp, err := d.fetcher.Get(ctx, asset.URL, &fetch.Options{
		MaxBodySize: iohelper.AssetMaxBodySize,
		Headers:     http.Header{"Accept": {defaults.AcceptJS}},
	})
	if err != nil {
		switch fetch.KindOf(err) {
		case fetch.KindTimeout, fetch.KindConnect:
			d.dead.MarkError(asset.URL)
		}
		o.Err = err
		return o
	}
	d.dead.Clear(asset.URL)

	o.Size = int64(len(resp.Body))
	o.Hash = murmur3.Sum32(resp.Body)

	d.mu.Lock()
	if existing, ok := d.byHash[o.Hash]; ok {
		d.mu.Unlock()
		o.Duplicate = true
		o.Path = existing
		return o
	}
	o.Path = d.claimPath(asset)
	d.byHash[o.Hash] = o.Path
	d.mu.Unlock()

	if err := d.write(o.Path, resp.Body); err != nil {
		// Unregister so another copy of this body can still be stored.
		d.mu.Lock()
		delete(d.byHash, o.Hash)
		d.mu.Unlock()
		o.Path = ""
		o.Err = err
	}
	return o
}

func (d *Downloader) write(dst string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), defaults.DirPerm); err != nil {
		return err
	}
	return os.WriteFile(dst, body, defaults.FilePerm)
}

// claimPath reserves a unique local path for the asset. Caller holds
// d.mu; reservations prevent two concurrent downloads from sanitizing
// onto the same file, and existing files from earlier runs are never
// overwritten.
func (d *Downloader) claimPath(asset discovery.JsAsset) string {
	dir := asset.Origin
	if dir == "" {
		if u, err := url.Parse(asset.URL); err == nil {
			dir = u.Host
		}
	}
	if dir == "" {
		dir = "unknown"
	}

	base := filepath.Join(d.cfg.OutputDir, sanitizeFileName(dir), fileNameFor(asset.URL))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := base
	for counter := 1; d.claimed[candidate] || fileExists(candidate); counter++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, counter, ext)
	}
	d.claimed[candidate] = true
	return candidate
}

// fileNameFor derives the stored name from the URL path: directory
// URLs become index.js, pathless URLs script.js, and everything gets
// a sanitized name with a .js extension.
func fileNameFor(rawURL string) string {
	name := "script.js"
	if u, err := url.Parse(rawURL); err == nil {
		switch {
		case strings.HasSuffix(u.Path, "/"):
			name = "index.js"
		case u.Path != "":
			if base := path.Base(u.Path); base != "." && base != "/" {
				name = base
			}
		}
	}

	name = sanitizeFileName(name)
	if !strings.HasSuffix(name, ".js") {
		name += ".js"
	}
	return name
}

// unsafeFilePattern matches characters that are path separators or
// reserved on common filesystems.
const unsafeFilePattern = `[<>:"/\\|?*]`

// sanitizeFileName replaces unsafe characters and caps the stem length,
// keeping the extension.
func sanitizeFileName(name string) string {
	name = regexcache.MustGet(unsafeFilePattern).ReplaceAllString(name, "_")
	if len(name) > defaults.MaxFilenameLength {
		ext := ""
		if dot := strings.LastIndex(name, "."); dot >= 0 {
			name, ext = name[:dot], name[dot:]
		}
		if len(name) > defaults.MaxFilenameLength {
			name = name[:defaults.MaxFilenameLength]
		}
		name += ext
	}
	return name
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Successful filters outcomes down to the ones with a freshly written
// file, the set the detector scans.
func Successful(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Err == nil && !o.Duplicate {
			out = append(out, o)
		}
	}
	return out
}
