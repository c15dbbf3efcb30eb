package osint

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/duration"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/httpclient"
	"github.com/jshound/jshound/pkg/iohelper"
	"github.com/jshound/jshound/pkg/jsonutil"
)

// SecurityTrailsClient queries the SecurityTrails passive-DNS API.
// Requires an API key.
type SecurityTrailsClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewSecurityTrailsClient creates a SecurityTrails client.
func NewSecurityTrailsClient(apiKey string) *SecurityTrailsClient {
	return &SecurityTrailsClient{
		apiKey: apiKey,
		httpClient: httpclient.New(httpclient.Config{
			Timeout:    duration.HTTPOSINT,
			RetryCount: defaults.RetryLow,
			RetryDelay: duration.RetryStd,
		}),
		baseURL: "https://api.securitytrails.com/v1",
	}
}

func (c *SecurityTrailsClient) Name() Source { return SourceSecurityTrails }

func (c *SecurityTrailsClient) Validate() error {
	if c.apiKey == "" {
		return fmt.Errorf("SecurityTrails API key required")
	}
	return nil
}

// FetchSubdomains queries the subdomains endpoint. The API returns
// child labels only ("www", "api"), which are expanded against the
// queried domain.
func (c *SecurityTrailsClient) FetchSubdomains(ctx context.Context, domain string) ([]string, error) {
	url := fmt.Sprintf("%s/domain/%s/subdomains", c.baseURL, domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APIKEY", c.apiKey)
	req.Header.Set("Accept", defaults.AcceptJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("SecurityTrails: %w", finding.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SecurityTrails: status %d", resp.StatusCode)
	}

	body, err := iohelper.ReadBody(resp.Body, iohelper.MediumMaxBodySize)
	if err != nil {
		return nil, err
	}

	var data struct {
		Subdomains []string `json:"subdomains"`
	}
	if err := jsonutil.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("SecurityTrails: decode: %w", err)
	}

	hosts := make([]string, 0, len(data.Subdomains))
	for _, label := range data.Subdomains {
		if label != "" {
			hosts = append(hosts, label+"."+domain)
		}
	}
	return hosts, nil
}
