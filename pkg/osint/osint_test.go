package osint

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/httpclient"
)

// fakeClient feeds Enumerate canned hostnames without touching the
// network.
type fakeClient struct {
	name  Source
	hosts []string
	err   error
}

func (f *fakeClient) Name() Source    { return f.name }
func (f *fakeClient) Validate() error { return nil }

func (f *fakeClient) FetchSubdomains(ctx context.Context, domain string) ([]string, error) {
	return f.hosts, f.err
}

func TestNewManager(t *testing.T) {
	m := NewManager()
	if m == nil {
		t.Fatal("NewManager returned nil")
	}
	if len(m.Sources()) != 0 {
		t.Errorf("expected empty manager, got %v", m.Sources())
	}
}

func TestRegisterSource_CrtshNoKey(t *testing.T) {
	m := NewManager()
	err := m.RegisterSource(SourceConfig{Source: SourceCrtsh, Enabled: true})
	if err != nil {
		t.Fatalf("crt.sh should not require API key: %v", err)
	}
	if len(m.Sources()) != 1 {
		t.Errorf("expected 1 source, got %d", len(m.Sources()))
	}
}

func TestRegisterSource_SecurityTrailsRequiresKey(t *testing.T) {
	m := NewManager()
	err := m.RegisterSource(SourceConfig{Source: SourceSecurityTrails, Enabled: true})
	if err == nil {
		t.Error("expected error for missing SecurityTrails API key")
	}
}

func TestRegisterSource_DisabledSource(t *testing.T) {
	m := NewManager()
	err := m.RegisterSource(SourceConfig{Source: SourceSecurityTrails, Enabled: false})
	if err != nil {
		t.Errorf("disabled source should not error: %v", err)
	}
	if len(m.Sources()) != 0 {
		t.Errorf("expected 0 sources, got %d", len(m.Sources()))
	}
}

func TestRegisterSource_UnknownSource(t *testing.T) {
	m := NewManager()
	err := m.RegisterSource(SourceConfig{Source: Source("unknown"), Enabled: true})
	if err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestNewDefaultManager(t *testing.T) {
	m, err := NewDefaultManager("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Sources()) != 4 {
		t.Errorf("expected 4 keyless sources, got %d", len(m.Sources()))
	}

	m, err = NewDefaultManager("test-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Sources()) != 5 {
		t.Errorf("expected 5 sources with key, got %d", len(m.Sources()))
	}
}

func TestEnumerate_MergesAndCanonicalizes(t *testing.T) {
	m := NewManager()
	m.Register(&fakeClient{
		name:  Source("fake"),
		hosts: []string{"www.example.com", "*.api.example.com", "www.example.com"},
	}, 0)

	set, err := m.Enumerate(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"api.example.com", "example.com", "www.example.com"}
	got := set.Sorted()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

func TestEnumerate_FiltersOutOfScope(t *testing.T) {
	m := NewManager()
	m.Register(&fakeClient{
		name: Source("fake"),
		hosts: []string{
			"mail.example.com",
			"evil.com",
			"notexample.com",
			"example.com.evil.io",
			"not a hostname",
			"",
		},
	}, 0)

	set, err := m.Enumerate(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !set.Contains("mail.example.com") {
		t.Error("in-scope host missing")
	}
	for _, h := range []string{"evil.com", "notexample.com", "example.com.evil.io"} {
		if set.Contains(h) {
			t.Errorf("out-of-scope host %q was admitted", h)
		}
	}
	if set.Len() != 2 {
		t.Errorf("expected 2 hosts, got %v", set.Sorted())
	}
}

func TestEnumerate_PartialFailure(t *testing.T) {
	m := NewManager()
	m.Register(&fakeClient{name: Source("dead"), err: errors.New("boom")}, 0)
	m.Register(&fakeClient{name: Source("alive"), hosts: []string{"api.example.com"}}, 0)

	set, err := m.Enumerate(context.Background(), "example.com")
	if err == nil {
		t.Fatal("expected joined error from failing source")
	}
	if !strings.Contains(err.Error(), "dead: boom") {
		t.Errorf("error should name the failing source: %v", err)
	}

	// The surviving source's results still arrive.
	if set == nil || !set.Contains("api.example.com") || !set.Contains("example.com") {
		t.Errorf("partial results lost: %v", set.Sorted())
	}
}

func TestEnumerate_NoSources(t *testing.T) {
	m := NewManager()
	_, err := m.Enumerate(context.Background(), "example.com")
	if !errors.Is(err, ErrNoSources) {
		t.Errorf("expected ErrNoSources, got %v", err)
	}
}

func TestEnumerate_InvalidDomain(t *testing.T) {
	m := NewManager()
	m.Register(&fakeClient{name: Source("fake")}, 0)

	for _, domain := range []string{"", "not a domain", "127.0.0.1"} {
		if _, err := m.Enumerate(context.Background(), domain); err == nil {
			t.Errorf("expected error for domain %q", domain)
		}
	}
}

func TestEnumerate_RootAlwaysIncluded(t *testing.T) {
	m := NewManager()
	m.Register(&fakeClient{name: Source("fake")}, 0)

	set, err := m.Enumerate(context.Background(), "Example.COM.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Len() != 1 || !set.Contains("example.com") {
		t.Errorf("expected just the canonical root, got %v", set.Sorted())
	}
}

func TestEnumerate_CanceledContext(t *testing.T) {
	m := NewManager()
	m.Register(&fakeClient{name: Source("limited"), hosts: []string{"www.example.com"}}, 60)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set, err := m.Enumerate(ctx, "example.com")
	if err == nil {
		t.Error("expected error from canceled context")
	}
	if set == nil || !set.Contains("example.com") {
		t.Error("root should survive cancellation")
	}
}

func TestCrtshClient_FetchSubdomains(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "q=%.example.com&output=json" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"name_value": "api.example.com"},
			{"name_value": "*.example.com\nwww.example.com"},
			{"name_value": "mail.example.com"}
		]`))
	}))
	defer server.Close()

	c := &CrtshClient{httpClient: httpclient.Default(), baseURL: server.URL}

	hosts, err := c.FetchSubdomains(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The wildcard entry unpacks into two names.
	if len(hosts) != 4 {
		t.Errorf("expected 4 hosts, got %v", hosts)
	}
}

func TestCrtshClient_FetchSubdomains_HTMLErrorPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>crt.sh is overloaded</body></html>"))
	}))
	defer server.Close()

	c := &CrtshClient{httpClient: httpclient.Default(), baseURL: server.URL}

	hosts, err := c.FetchSubdomains(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("HTML error page should degrade to empty, got %v", err)
	}
	if len(hosts) != 0 {
		t.Errorf("expected 0 hosts, got %v", hosts)
	}
}

func TestCrtshClient_FetchSubdomains_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := &CrtshClient{httpClient: httpclient.Default(), baseURL: server.URL}

	_, err := c.FetchSubdomains(context.Background(), "example.com")
	if !errors.Is(err, finding.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestCrtshClient_Validate(t *testing.T) {
	c := NewCrtshClient()
	if err := c.Validate(); err != nil {
		t.Errorf("crt.sh should not require validation: %v", err)
	}
	if c.Name() != SourceCrtsh {
		t.Errorf("expected %s, got %s", SourceCrtsh, c.Name())
	}
}

func TestSecurityTrailsClient_Validate(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{"with key", "test-key", false},
		{"without key", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewSecurityTrailsClient(tt.apiKey)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecurityTrailsClient_FetchSubdomains(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/domain/example.com/subdomains" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("APIKEY") != "test-key" {
			t.Errorf("missing APIKEY header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subdomains": ["api", "www", ""]}`))
	}))
	defer server.Close()

	c := &SecurityTrailsClient{
		apiKey:     "test-key",
		httpClient: httpclient.Default(),
		baseURL:    server.URL,
	}

	hosts, err := c.FetchSubdomains(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Labels expand against the queried domain; empty labels drop.
	want := []string{"api.example.com", "www.example.com"}
	if len(hosts) != len(want) {
		t.Fatalf("expected %v, got %v", want, hosts)
	}
	for i := range want {
		if hosts[i] != want[i] {
			t.Errorf("expected %v, got %v", want, hosts)
			break
		}
	}
}

func TestHackerTargetClient_FetchSubdomains(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hostsearch/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte("www.example.com,93.184.216.34\napi.example.com,93.184.216.35\n\n"))
	}))
	defer server.Close()

	c := &HackerTargetClient{httpClient: httpclient.Default(), baseURL: server.URL}

	hosts, err := c.FetchSubdomains(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 2 || hosts[0] != "www.example.com" || hosts[1] != "api.example.com" {
		t.Errorf("unexpected hosts: %v", hosts)
	}
}

func TestHackerTargetClient_QuotaExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The free tier reports quota exhaustion as a 200 with prose.
		w.Write([]byte("API count exceeded - Increase Quota with Membership"))
	}))
	defer server.Close()

	c := &HackerTargetClient{httpClient: httpclient.Default(), baseURL: server.URL}

	_, err := c.FetchSubdomains(context.Background(), "example.com")
	if !errors.Is(err, finding.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestHackerTargetClient_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("error invalid search query"))
	}))
	defer server.Close()

	c := &HackerTargetClient{httpClient: httpclient.Default(), baseURL: server.URL}

	_, err := c.FetchSubdomains(context.Background(), "example.com")
	if err == nil {
		t.Fatal("expected error from prose error body")
	}
	if errors.Is(err, finding.ErrRateLimited) {
		t.Errorf("query error misclassified as rate limit: %v", err)
	}
}

func TestExtractDomainFromURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.example.com/path/to/app", "www.example.com"},
		{"http://example.com:8080", "example.com"},
		{"example.com", "example.com"},
		{"api.example.com/v1", "api.example.com"},
	}

	for _, tt := range tests {
		got, err := ExtractDomainFromURL(tt.input)
		if err != nil {
			t.Errorf("ExtractDomainFromURL(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractDomainFromURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
