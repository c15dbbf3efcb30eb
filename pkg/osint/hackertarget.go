package osint

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/duration"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/httpclient"
	"github.com/jshound/jshound/pkg/iohelper"
)

// HackerTargetClient queries the HackerTarget host-search API. No API
// key required; the free tier answers a handful of queries per day and
// signals exhaustion in the response body, not the status code.
type HackerTargetClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewHackerTargetClient creates a HackerTarget client.
func NewHackerTargetClient() *HackerTargetClient {
	return &HackerTargetClient{
		httpClient: httpclient.New(httpclient.Config{
			Timeout:    duration.HTTPOSINT,
			RetryCount: defaults.RetryLow,
			RetryDelay: duration.RetryStd,
		}),
		baseURL: "https://api.hackertarget.com",
	}
}

func (c *HackerTargetClient) Name() Source { return SourceHackerTarget }

func (c *HackerTargetClient) Validate() error {
	return nil // no API key required
}

// FetchSubdomains queries the host-search endpoint, which answers with
// one "hostname,ip" line per record.
func (c *HackerTargetClient) FetchSubdomains(ctx context.Context, domain string) ([]string, error) {
	url := fmt.Sprintf("%s/hostsearch/?q=%s", c.baseURL, domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("hackertarget: %w", finding.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hackertarget: status %d", resp.StatusCode)
	}

	body, err := iohelper.ReadBody(resp.Body, iohelper.MediumMaxBodySize)
	if err != nil {
		return nil, err
	}

	// Quota exhaustion and query errors both arrive as 200s with a
	// prose body instead of CSV.
	trimmed := strings.ToLower(strings.TrimSpace(string(body)))
	if strings.HasPrefix(trimmed, "api count exceeded") {
		return nil, fmt.Errorf("hackertarget: %w", finding.ErrRateLimited)
	}
	if strings.HasPrefix(trimmed, "error") {
		return nil, fmt.Errorf("hackertarget: %s", trimmed)
	}

	var hosts []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		host, _, _ := strings.Cut(line, ",")
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts, scanner.Err()
}
