// Package defaults holds every tunable's canonical default in one
// place. Code never hardcodes a concurrency level, retry count, or
// buffer size; it names the constant here so defaults stay consistent
// across the pipeline and show up in one diff when they change.
//
//	cfg.Concurrency = defaults.ConcurrencyMedium
//	req.Header.Set("Accept", defaults.AcceptJS)
package defaults

import "fmt"

// Version is the current jshound version
const Version = "1.3.0"

// ============================================================================
// CONCURRENCY
// ============================================================================
//
// Worker pool and semaphore widths, scaled by how noisy the operation
// is allowed to be on the target.
// ============================================================================

const (
	// ConcurrencyMinimal forces sequential operation (1)
	ConcurrencyMinimal = 1

	// ConcurrencyLow suits API enumeration and light probing (5)
	ConcurrencyLow = 5

	// ConcurrencyMedium is the default fetch parallelism (10)
	ConcurrencyMedium = 10

	// ConcurrencyHigh suits aggressive asset discovery (20)
	ConcurrencyHigh = 20

	// ConcurrencyVeryHigh suits bulk downloads (40)
	ConcurrencyVeryHigh = 40

	// ConcurrencyMax is the ceiling we ever run at (50)
	ConcurrencyMax = 50
)

// ============================================================================
// RETRIES
// ============================================================================

const (
	// RetryNone turns retries off (0)
	RetryNone = 0

	// RetryLow suits fast local operations (2)
	RetryLow = 2

	// RetryMedium is the default attempt count (3)
	RetryMedium = 3

	// RetryHigh suits flaky OSINT endpoints (5)
	RetryHigh = 5
)

// ============================================================================
// BUFFERS
// ============================================================================
//
// Byte buffer and slice capacities for I/O paths.
// ============================================================================

const (
	// BufferTiny covers small reads (1KB)
	BufferTiny = 1 * 1024

	// BufferSmall covers typical reads (4KB)
	BufferSmall = 4 * 1024

	// BufferMedium covers larger reads (32KB)
	BufferMedium = 32 * 1024

	// BufferLarge covers bulk reads (64KB)
	BufferLarge = 64 * 1024

	// BufferMax caps a response body read (10MB)
	BufferMax = 10 * 1024 * 1024
)

// ============================================================================
// ACCEPT HEADERS
// ============================================================================

const (
	// AcceptAll takes any content type
	AcceptAll = "*/*"

	// AcceptJSON takes JSON responses
	AcceptJSON = "application/json"

	// AcceptHTML mirrors a browser's page navigation Accept value
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// AcceptJS prefers JavaScript and plain-text sources
	AcceptJS = "application/javascript,text/javascript;q=0.9,*/*;q=0.8"
)

// ============================================================================
// USER AGENTS
// ============================================================================
//
// Fixed strings for browser emulation; UserAgent() builds the honest
// tool identity.
// ============================================================================

const (
	// UAChrome identifies as Chrome on Windows
	UAChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// UAFirefox identifies as Firefox on Windows
	UAFirefox = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"

	// UASafari identifies as Safari on macOS
	UASafari = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"

	// UAEdge identifies as Edge on Windows
	UAEdge = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"

	// UABot is the compatible-style bot identity
	UABot = "Mozilla/5.0 (compatible; jshound/" + Version + ")"

	// UAMinimal is the bare tool identity
	UAMinimal = "jshound/" + Version
)

// UserAgent builds the tool identity, tagged with the subsystem making
// the request when context is non-empty.
func UserAgent(context string) string {
	if context == "" {
		return UAMinimal
	}
	return fmt.Sprintf("jshound/%s (%s)", Version, context)
}

// ============================================================================
// RATE LIMITS
// ============================================================================

const (
	// RateLimitNone turns throttling off (0)
	RateLimitNone = 0

	// RateLimitLow is the conservative budget (10 req/s)
	RateLimitLow = 10

	// RateLimitMedium is the default budget (50 req/s)
	RateLimitMedium = 50

	// RateLimitHigh is the aggressive budget (100 req/s)
	RateLimitHigh = 100
)

// ============================================================================
// ENUMERATION
// ============================================================================

const (
	// MaxSubdomains caps how many subdomains proceed into discovery
	MaxSubdomains = 10000

	// MaxSourceResults caps entries accepted from one OSINT source
	MaxSourceResults = 50000

	// SourceRateLimit is the default per-source OSINT budget (60 req/min)
	SourceRateLimit = 60

	// SourceRateLimitStrict fits harshly throttled free tiers (10 req/min)
	SourceRateLimitStrict = 10
)

// ============================================================================
// DISCOVERY
// ============================================================================

const (
	// MaxRedirects bounds redirect chains during page fetches
	MaxRedirects = 10

	// MaxPageSize caps the HTML parsed for script references (5MB)
	MaxPageSize = 5 * 1024 * 1024

	// MaxScriptsPerPage caps script references taken from one page
	MaxScriptsPerPage = 500
)

// ============================================================================
// DOWNLOAD
// ============================================================================

const (
	// MaxFilenameLength caps a sanitized filename before its extension
	MaxFilenameLength = 200

	// MaxAssetSize caps a downloaded JavaScript asset (10MB)
	MaxAssetSize = 10 * 1024 * 1024

	// DirPerm applies to created output directories
	DirPerm = 0o755

	// FilePerm applies to downloaded assets and reports
	FilePerm = 0o644
)

// ============================================================================
// OUTPUT LAYOUT
// ============================================================================

const (
	// OutputDir is the default scan artifact directory
	OutputDir = "jshound-out"

	// SubdomainListName is the plain-text subdomain list inside OutputDir
	SubdomainListName = "subdomains.txt"

	// SubdomainJSONName is the JSON subdomain report inside OutputDir
	SubdomainJSONName = "subdomains.json"

	// AssetDirName holds downloaded scripts under OutputDir
	AssetDirName = "js"
)

// ============================================================================
// DETECTION
// ============================================================================

const (
	// ContextRadius is how many characters surround a reported match
	ContextRadius = 30

	// MaskKeepPrefix is how many leading secret characters stay visible
	MaskKeepPrefix = 4

	// MaskKeepSuffix is how many trailing secret characters stay visible
	MaskKeepSuffix = 4
)
