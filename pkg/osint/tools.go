package osint

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/jshound/jshound/pkg/duration"
)

// ToolClient adapts a local enumeration binary into a Source. The
// binaries are optional installs: when one is missing from PATH the
// adapter contributes an empty result rather than an error, so a bare
// system still enumerates through the API sources.
type ToolClient struct {
	source    Source
	binary    string
	buildArgs func(domain string) []string
	timeout   time.Duration
}

// NewAssetfinderClient adapts tomnomnom's assetfinder.
func NewAssetfinderClient() *ToolClient {
	return &ToolClient{
		source: SourceAssetfinder,
		binary: "assetfinder",
		buildArgs: func(domain string) []string {
			return []string{"--subs-only", domain}
		},
		timeout: duration.ToolRun,
	}
}

// NewSubfinderClient adapts projectdiscovery's subfinder.
func NewSubfinderClient() *ToolClient {
	return &ToolClient{
		source: SourceSubfinder,
		binary: "subfinder",
		buildArgs: func(domain string) []string {
			return []string{"-d", domain, "-silent"}
		},
		timeout: duration.ToolRun,
	}
}

func (c *ToolClient) Name() Source { return c.source }

// Validate always succeeds: the binary is optional and its absence is
// handled at fetch time.
func (c *ToolClient) Validate() error { return nil }

// Installed reports whether the tool binary is on PATH.
func (c *ToolClient) Installed() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// FetchSubdomains runs the tool and parses its line-oriented stdout.
// A missing binary yields an empty result and no error.
func (c *ToolClient) FetchSubdomains(ctx context.Context, domain string) ([]string, error) {
	path, err := exec.LookPath(c.binary)
	if err != nil {
		return nil, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, c.buildArgs(domain)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", c.binary, runCtx.Err())
		}
		if msg, _, _ := strings.Cut(strings.TrimSpace(stderr.String()), "\n"); msg != "" {
			return nil, fmt.Errorf("%s: %s", c.binary, msg)
		}
		return nil, fmt.Errorf("%s: %w", c.binary, err)
	}

	var hosts []string
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			hosts = append(hosts, line)
		}
	}
	return hosts, scanner.Err()
}
