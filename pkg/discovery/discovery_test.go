package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jshound/jshound/pkg/fetch"
)

func newTestFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Config{FollowRedirects: true})
}

// hostOf strips the scheme from an httptest server URL, since Discover
// takes bare hostnames.
func hostOf(t *testing.T, serverURL string) string {
	t.Helper()
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("parse %q: %v", serverURL, err)
	}
	return u.Host
}

func TestDiscover_StaticExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head>
<script src="/app.js"></script>
<script src="https://cdn.jsdelivr.net/lib.js"></script>
</head></html>`))
	}))
	defer server.Close()

	host := hostOf(t, server.URL)
	d := New(Config{}, newTestFetcher())

	set := d.Discover(context.Background(), []string{host})

	// The https attempt fails against the plain-HTTP listener, so the
	// asset resolves under the http fallback's own URL.
	wantAsset := server.URL + "/app.js"
	if !set.Contains(wantAsset) {
		t.Errorf("expected %q in set, got %v", wantAsset, set.URLs())
	}
	if set.Contains("https://cdn.jsdelivr.net/lib.js") {
		t.Error("cross-origin asset admitted without IncludeCDN")
	}
	if set.Len() != 1 {
		t.Errorf("expected 1 asset, got %v", set.URLs())
	}

	if d.Crawled() != 1 {
		t.Errorf("expected 1 crawled page, got %d", d.Crawled())
	}
	if skipped := d.Skipped(); len(skipped) != 0 {
		t.Errorf("unexpected skips: %v", skipped)
	}

	asset, ok := set.Get(wantAsset)
	if !ok || asset.Origin != host {
		t.Errorf("asset origin = %q, want %q", asset.Origin, host)
	}
	if asset.Source != server.URL+"/" {
		t.Errorf("asset source = %q, want referencing page %q", asset.Source, server.URL+"/")
	}
	if asset.Discovered.IsZero() {
		t.Error("discovery timestamp not set")
	}
}

func TestDiscover_IncludeCDN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script src="https://cdn.jsdelivr.net/lib.js"></script>`))
	}))
	defer server.Close()

	d := New(Config{IncludeCDN: true}, newTestFetcher())
	set := d.Discover(context.Background(), []string{hostOf(t, server.URL)})

	if !set.Contains("https://cdn.jsdelivr.net/lib.js") {
		t.Errorf("IncludeCDN should admit cross-origin assets, got %v", set.URLs())
	}
}

func TestDiscover_RetainPages(t *testing.T) {
	body := `<html><script src="/app.js"></script>const key = "sk_live_deadbeef";</html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	host := hostOf(t, server.URL)

	d := New(Config{RetainPages: true}, newTestFetcher())
	d.Discover(context.Background(), []string{host})

	pages := d.Pages()
	if len(pages) != 1 {
		t.Fatalf("expected 1 retained page, got %d", len(pages))
	}
	if pages[0].Host != host || pages[0].Text != body {
		t.Errorf("retained page mismatch: %+v", pages[0])
	}
	if !strings.HasPrefix(pages[0].URL, "http://") {
		t.Errorf("page URL should be the fetched URL, got %q", pages[0].URL)
	}

	// A second run starts clean.
	d.Discover(context.Background(), nil)
	if pages := d.Pages(); len(pages) != 0 {
		t.Errorf("pages should reset between runs, got %d", len(pages))
	}

	plain := New(Config{}, newTestFetcher())
	plain.Discover(context.Background(), []string{host})
	if pages := plain.Pages(); len(pages) != 0 {
		t.Errorf("pages retained without RetainPages: %d", len(pages))
	}
}

func TestDiscover_SkipsDeadHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script src="/app.js"></script>`))
	}))
	defer server.Close()

	d := New(Config{}, newTestFetcher())
	set := d.Discover(context.Background(), []string{hostOf(t, server.URL), "127.0.0.1:1"})

	if set.Len() != 1 {
		t.Errorf("live host's assets lost: %v", set.URLs())
	}

	skipped := d.Skipped()
	if len(skipped) != 1 {
		t.Fatalf("expected 1 skip, got %v", skipped)
	}
	if skipped[0].Host != "127.0.0.1:1" || skipped[0].Err == nil {
		t.Errorf("skip should name the dead host and cause: %+v", skipped[0])
	}
}

func TestDiscover_FirstOriginWins(t *testing.T) {
	shared := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`console.log("shared")`))
	}))
	defer shared.Close()
	sharedURL := shared.URL + "/shared.js"

	page := func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<script src="` + sharedURL + `"></script>`))
		}
	}
	serverA := httptest.NewServer(page())
	defer serverA.Close()
	serverB := httptest.NewServer(page())
	defer serverB.Close()

	hostA := hostOf(t, serverA.URL)
	hostB := hostOf(t, serverB.URL)

	d := New(Config{}, newTestFetcher())
	set := NewAssetSet()
	ctx := context.Background()

	d.crawlHost(ctx, ctx, hostA, set)
	d.crawlHost(ctx, ctx, hostB, set)

	asset, ok := set.Get(sharedURL)
	if !ok {
		t.Fatalf("shared asset missing: %v", set.URLs())
	}
	if asset.Origin != hostA {
		t.Errorf("first discovery should keep attribution, got origin %q", asset.Origin)
	}
	if set.Len() != 1 {
		t.Errorf("same URL counted twice: %v", set.URLs())
	}
}

func TestDiscover_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(Config{}, newTestFetcher())
	set := d.Discover(ctx, []string{"a.example.com", "b.example.com"})

	if set.Len() != 0 {
		t.Errorf("expected empty set, got %v", set.URLs())
	}
	if skipped := d.Skipped(); len(skipped) != 2 {
		t.Errorf("expected both hosts recorded as skipped, got %v", skipped)
	}
}

func TestDiscover_EmptyInput(t *testing.T) {
	d := New(Config{}, newTestFetcher())
	set := d.Discover(context.Background(), nil)
	if set == nil || set.Len() != 0 {
		t.Errorf("expected empty valid set, got %v", set)
	}
}

func TestFetchPage_HTTPFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	d := New(Config{}, newTestFetcher())
	page, err := d.fetchPage(context.Background(), hostOf(t, server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(page.FinalURL, "http://") {
		t.Errorf("expected http fallback URL, got %q", page.FinalURL)
	}
}

func TestAssetSet(t *testing.T) {
	set := NewAssetSet()

	first := JsAsset{URL: "https://www.example.com/a.js", Origin: "www.example.com", Discovered: time.Now()}
	if !set.Add(first) {
		t.Error("first insert should report true")
	}
	if set.Add(JsAsset{URL: first.URL, Origin: "api.example.com"}) {
		t.Error("duplicate URL should not insert")
	}
	if set.Add(JsAsset{}) {
		t.Error("empty URL should not insert")
	}

	got, ok := set.Get(first.URL)
	if !ok || got.Origin != "www.example.com" {
		t.Errorf("origin overwritten: %+v", got)
	}

	set.Add(JsAsset{URL: "https://api.example.com/b.js", Origin: "api.example.com"})
	urls := set.URLs()
	if len(urls) != 2 || urls[0] != "https://api.example.com/b.js" {
		t.Errorf("URLs not sorted: %v", urls)
	}

	assets := set.Assets()
	if len(assets) != 2 || assets[0].URL != "https://api.example.com/b.js" {
		t.Errorf("Assets not sorted: %v", assets)
	}
}
