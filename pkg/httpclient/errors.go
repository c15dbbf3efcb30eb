package httpclient

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrProxyConnect indicates the client failed to connect through
	// the configured proxy (SOCKS4/5, HTTP).
	ErrProxyConnect = errors.New("httpclient: proxy connection failed")

	// ErrDNS indicates a DNS resolution failure for the target host.
	ErrDNS = errors.New("httpclient: DNS resolution failed")

	// ErrTLS indicates a TLS handshake or certificate verification failure.
	ErrTLS = errors.New("httpclient: TLS handshake failed")
)

// Classify wraps err with the matching sentinel so callers can bucket
// network failures without string matching. Scan reports group failed
// hosts by DNS / TLS / proxy problems, and those buckets come from here.
// Errors that fit no category are returned unchanged; nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %w", ErrDNS, err)
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return fmt.Errorf("%w: %w", ErrTLS, err)
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return fmt.Errorf("%w: %w", ErrTLS, err)
	}

	// The transport wraps proxy dial failures with a "proxyconnect"
	// prefix; SOCKS failures mention the protocol. TLS alerts arrive as
	// flattened strings, so a text match is the last resort.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "proxyconnect"), strings.Contains(msg, "socks"):
		return fmt.Errorf("%w: %w", ErrProxyConnect, err)
	case strings.Contains(msg, "tls:"), strings.Contains(msg, "x509:"):
		return fmt.Errorf("%w: %w", ErrTLS, err)
	}

	return err
}
