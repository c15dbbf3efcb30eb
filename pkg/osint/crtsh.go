package osint

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/duration"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/httpclient"
	"github.com/jshound/jshound/pkg/iohelper"
	"github.com/jshound/jshound/pkg/jsonutil"
)

// CrtshClient queries crt.sh certificate transparency logs. No API key
// required; the service is slow and occasionally answers with an HTML
// error page instead of JSON.
type CrtshClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewCrtshClient creates a crt.sh client.
func NewCrtshClient() *CrtshClient {
	return &CrtshClient{
		httpClient: httpclient.New(httpclient.Config{
			Timeout:    duration.HTTPOSINT,
			RetryCount: defaults.RetryLow,
			RetryDelay: duration.RetryStd,
		}),
		baseURL: "https://crt.sh",
	}
}

func (c *CrtshClient) Name() Source { return SourceCrtsh }

func (c *CrtshClient) Validate() error {
	return nil // no API key required
}

// FetchSubdomains queries certificates issued for *.domain and returns
// every name they cover. Multi-domain and wildcard certificates pack
// several names into one entry, newline-separated.
func (c *CrtshClient) FetchSubdomains(ctx context.Context, domain string) ([]string, error) {
	url := fmt.Sprintf("%s/?q=%%.%s&output=json", c.baseURL, domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", defaults.AcceptJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("crt.sh: %w", finding.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crt.sh: status %d", resp.StatusCode)
	}

	// Large domains produce multi-megabyte certificate lists.
	body, err := iohelper.ReadBody(resp.Body, iohelper.PageMaxBodySize)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		NameValue string `json:"name_value"`
	}
	if err := jsonutil.Unmarshal(body, &entries); err != nil {
		// HTML error page under load; treat as an empty answer.
		return []string{}, nil
	}

	var hosts []string
	for _, entry := range entries {
		for _, name := range strings.Split(entry.NameValue, "\n") {
			name = strings.TrimSpace(name)
			if name != "" {
				hosts = append(hosts, name)
			}
		}
	}
	return hosts, nil
}
