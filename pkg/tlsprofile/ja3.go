// Package tlsprofile provides JA3 fingerprint camouflage for fetching
// pages and scripts from CDN edges that filter clients by TLS
// fingerprint. Go's native ClientHello is a well-known bot signature;
// handshaking with a browser fingerprint keeps discovery requests from
// being served challenge pages instead of HTML.
//
// Fingerprint references:
//   - https://github.com/salesforce/ja3
//   - https://github.com/refraction-networking/utls
package tlsprofile

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/jshound/jshound/pkg/browser"
	"github.com/jshound/jshound/pkg/duration"
)

// JA3Profile pairs a TLS ClientHello fingerprint with the browser
// identity whose headers match it. The pairing is the point: a Chrome
// hello carrying Firefox headers is a stronger bot signal than no
// camouflage at all.
type JA3Profile struct {
	Name        string `json:"name"`
	JA3Hash     string `json:"ja3_hash"`
	Description string `json:"description"`
	ClientHello *utls.ClientHelloID
	Identity    *browser.Profile `json:"-"`
}

// Config configures the camouflaged transports.
type Config struct {
	Profiles    []*JA3Profile // catalog to rotate through (DefaultProfiles if nil)
	RotateEvery int           // switch profile after N requests (0 = random pick per request)
	Timeout     time.Duration
	SkipVerify  bool
}

// DefaultConfig rotates the full catalog every 25 requests.
func DefaultConfig() *Config {
	return &Config{
		Profiles:    DefaultProfiles(),
		RotateEvery: 25,
		Timeout:     duration.HTTPDownload,
		// Camouflaged fetches hit the same discovered subdomains as
		// plain ones, with the same expired and mismatched certs.
		SkipVerify: true,
	}
}

// rotor is the profile-rotation state shared by both transports.
type rotor struct {
	mu       sync.Mutex
	profiles []*JA3Profile
	idx      int
	count    int
	every    int
}

func newRotor(cfg *Config) rotor {
	profiles := cfg.Profiles
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}
	return rotor{
		profiles: profiles,
		// Start somewhere random so concurrent scans don't all lead
		// with the same fingerprint.
		idx:   rand.IntN(len(profiles)),
		every: cfg.RotateEvery,
	}
}

// next returns the profile for this request and advances the rotation.
func (r *rotor) next() (*JA3Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.profiles) == 0 {
		return nil, fmt.Errorf("tlsprofile: no profiles configured")
	}
	p := r.profiles[r.idx]
	r.count++
	switch {
	case r.every == 0:
		r.idx = rand.IntN(len(r.profiles))
	case r.count >= r.every:
		r.count = 0
		r.idx = (r.idx + 1) % len(r.profiles)
	}
	return p, nil
}

// current returns the active profile without advancing.
func (r *rotor) current() *JA3Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[r.idx]
}

// setByName pins the rotation to the named profile.
func (r *rotor) setByName(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.profiles {
		if strings.EqualFold(p.Name, name) {
			r.idx = i
			return nil
		}
	}
	return fmt.Errorf("tlsprofile: profile not found: %s", name)
}

// identify clones req and applies the profile's browser headers unless
// the caller already chose a User-Agent.
func identify(req *http.Request, p *JA3Profile) *http.Request {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" && p.Identity != nil {
		p.Identity.Apply(req.Header)
	}
	return req
}

// Transport is an http.RoundTripper that handshakes with rotating
// browser ClientHello fingerprints via utls.
type Transport struct {
	rotor
	timeout    time.Duration
	skipVerify bool
}

// NewTransport builds a rotating utls transport. A nil cfg gets
// DefaultConfig.
func NewTransport(cfg *Config) *Transport {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Transport{
		rotor:      newRotor(cfg),
		timeout:    cfg.Timeout,
		skipVerify: cfg.SkipVerify,
	}
}

// RoundTrip issues req over a fresh fingerprinted connection. Each
// request gets a single-use inner transport: a pooled connection would
// pin one handshake fingerprint across rotations.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	profile, err := t.next()
	if err != nil {
		return nil, err
	}

	inner := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return t.dialWithHello(ctx, network, addr, profile)
		},
		DisableKeepAlives: true,
	}
	defer inner.CloseIdleConnections()

	return inner.RoundTrip(identify(req, profile))
}

// dialWithHello opens addr and handshakes with the profile's
// ClientHello.
func (t *Transport) dialWithHello(ctx context.Context, network, addr string, profile *JA3Profile) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	uConn := utls.UClient(conn, &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: t.skipVerify,
	}, *profile.ClientHello)

	// The wrapping http.Transport only speaks HTTP/1.1 over this conn.
	// Browser presets advertise h2 in ALPN, so a server that negotiates
	// h2 would answer in frames we never parse. Restrict the offer;
	// ALPN values are not part of the JA3 hash.
	if err := uConn.BuildHandshakeState(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tlsprofile: build hello: %w", err)
	}
	for _, ext := range uConn.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	if err := uConn.MarshalClientHello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tlsprofile: marshal hello: %w", err)
	}

	if err := uConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tlsprofile: handshake failed: %w", err)
	}
	return uConn, nil
}

// GetCurrentJA3 reports the active profile's name and JA3 hash.
func (t *Transport) GetCurrentJA3() (name, hash string) {
	p := t.current()
	return p.Name, p.JA3Hash
}

// SetProfile pins the rotation to the named profile.
func (t *Transport) SetProfile(name string) error {
	return t.setByName(name)
}

// JA3Info is a reportable snapshot of the transport's camouflage state.
type JA3Info struct {
	ProfileName string `json:"profile_name"`
	JA3Hash     string `json:"ja3_hash"`
	UserAgent   string `json:"user_agent"`
	Description string `json:"description"`
	RotateEvery int    `json:"rotate_every"`
	RequestNum  int    `json:"request_num"`
}

// GetJA3Info snapshots the active profile and rotation counters.
func (t *Transport) GetJA3Info() *JA3Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.profiles[t.idx]
	info := &JA3Info{
		ProfileName: p.Name,
		JA3Hash:     p.JA3Hash,
		Description: p.Description,
		RotateEvery: t.every,
		RequestNum:  t.count,
	}
	if p.Identity != nil {
		info.UserAgent = p.Identity.UserAgent
	}
	return info
}

// CreateClient wraps a rotating fingerprint transport in an
// *http.Client. A nil cfg gets DefaultConfig.
func CreateClient(cfg *Config) *http.Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &http.Client{
		Transport: NewTransport(cfg),
		Timeout:   cfg.Timeout,
	}
}

// FallbackTransport rotates browser identities over standard
// crypto/tls. Used when a target rejects the utls handshake outright,
// or when only header-level camouflage is wanted.
type FallbackTransport struct {
	rotor
	skipVerify bool
}

// NewFallbackTransport builds the crypto/tls identity-rotating
// transport. A nil cfg gets DefaultConfig.
func NewFallbackTransport(cfg *Config) *FallbackTransport {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &FallbackTransport{
		rotor:      newRotor(cfg),
		skipVerify: cfg.SkipVerify,
	}
}

// RoundTrip issues req with the active identity's headers over a
// stock TLS handshake.
func (t *FallbackTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	profile, err := t.next()
	if err != nil {
		return nil, err
	}

	inner := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: t.skipVerify,
			MinVersion:         tls.VersionTLS12,
			MaxVersion:         tls.VersionTLS13,
		},
		DisableKeepAlives: true,
	}
	defer inner.CloseIdleConnections()

	return inner.RoundTrip(identify(req, profile))
}

// CreateFallbackClient wraps a FallbackTransport in an *http.Client.
func CreateFallbackClient(cfg *Config) *http.Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &http.Client{
		Transport: NewFallbackTransport(cfg),
		Timeout:   cfg.Timeout,
	}
}

// DefaultProfiles is the fingerprint catalog. JA3 hashes are the
// published values for each hello preset; identities come from
// pkg/browser so header and handshake fingerprints always agree.
func DefaultProfiles() []*JA3Profile {
	return []*JA3Profile{
		{
			Name:        "Chrome 120 Windows",
			JA3Hash:     "b32309a26951912be7dba376398abc3b",
			Description: "Chrome 120 on Windows 10/11",
			ClientHello: &utls.HelloChrome_120,
			Identity:    browser.Chrome,
		},
		{
			Name:        "Chrome 120 macOS",
			JA3Hash:     "b32309a26951912be7dba376398abc3b",
			Description: "Chrome 120 on macOS",
			ClientHello: &utls.HelloChrome_120,
			Identity:    browser.ChromeMac,
		},
		{
			Name:        "Chrome 120 Linux",
			JA3Hash:     "b32309a26951912be7dba376398abc3b",
			Description: "Chrome 120 on Linux",
			ClientHello: &utls.HelloChrome_120,
			Identity:    browser.ChromeLinux,
		},
		{
			Name:        "Chrome 112",
			JA3Hash:     "8e1f6dd365d1e6d38c98c7903f6cbb1d",
			Description: "Chrome 112 with PSK",
			ClientHello: &utls.HelloChrome_112_PSK_Shuf,
			Identity:    browser.Chrome,
		},
		{
			Name:        "Chrome 106",
			JA3Hash:     "e3e2c2ae93562f0b7d2c27c0b9a8c4e0",
			Description: "Chrome 106 with extension shuffle",
			ClientHello: &utls.HelloChrome_106_Shuffle,
			Identity:    browser.Chrome,
		},
		{
			Name:        "Firefox 121 Windows",
			JA3Hash:     "aa56c057389e0c3b2c0d6d3e3e97e50d",
			Description: "Firefox 121 on Windows",
			ClientHello: &utls.HelloFirefox_120,
			Identity:    browser.Firefox,
		},
		{
			Name:        "Firefox 121 macOS",
			JA3Hash:     "aa56c057389e0c3b2c0d6d3e3e97e50d",
			Description: "Firefox 121 on macOS",
			ClientHello: &utls.HelloFirefox_120,
			Identity:    browser.FirefoxMac,
		},
		{
			Name:        "Safari 17 macOS",
			JA3Hash:     "7c8e4c4d43e0bbafcdea0cfa34f95936",
			Description: "Safari 17 on macOS Sonoma",
			ClientHello: &utls.HelloSafari_16_0,
			Identity:    browser.Safari,
		},
		{
			Name:        "Safari iOS 17",
			JA3Hash:     "7c8e4c4d43e0bbafcdea0cfa34f95936",
			Description: "Safari on iOS 17",
			ClientHello: &utls.HelloIOS_14,
			Identity:    browser.SafariMobile,
		},
		{
			Name:        "Edge 120 Windows",
			JA3Hash:     "b32309a26951912be7dba376398abc3b",
			Description: "Microsoft Edge 120 on Windows",
			ClientHello: &utls.HelloEdge_106,
			Identity:    browser.Edge,
		},
		{
			Name:        "Randomized",
			JA3Hash:     "randomized",
			Description: "Randomized fingerprint matching no catalog entry",
			ClientHello: &utls.HelloRandomized,
			Identity:    browser.Chrome,
		},
	}
}

// ListProfiles returns the catalog's profile names.
func ListProfiles() []string {
	profiles := DefaultProfiles()
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// GetProfileByName finds a catalog profile, case-insensitively.
func GetProfileByName(name string) (*JA3Profile, error) {
	for _, p := range DefaultProfiles() {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("tlsprofile: profile not found: %s", name)
}
