package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/jsonutil"
	"github.com/jshound/jshound/pkg/plugin"
)

// registerResources adds the domain-knowledge resources to the MCP server.
func (s *Server) registerResources() {
	s.addVersionResource()
	s.addSourcesResource()
	s.addDetectorsResource()
}

// jsonResource is the shared shape of the resource handlers: render v
// as indented JSON under the given URI.
func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// jshound://version — Server capabilities and version
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addVersionResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         "jshound://version",
			Name:        "jshound Version",
			Description: "Server version, capabilities, and tool inventory.",
			MIMEType:    "application/json",
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			info := map[string]any{
				"name":    "jshound",
				"version": defaults.Version,
				"capabilities": map[string]any{
					"tools":     3,
					"resources": 3,
					"prompts":   1,
				},
				"tools": []string{
					"list_detectors", "enumerate_subdomains", "scan_domain",
				},
				"pipeline_stages": []string{
					"enumerate", "discover", "download", "detect",
				},
				"output_dir": s.config.OutputDir,
			}
			return jsonResource("jshound://version", info)
		},
	)
}

// ═══════════════════════════════════════════════════════════════════════════
// jshound://sources — Enumeration source catalog
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addSourcesResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         "jshound://sources",
			Name:        "Enumeration Sources",
			Description: "The passive OSINT sources enumerate_subdomains and scan_domain draw from, with their requirements.",
			MIMEType:    "application/json",
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			type sourceInfo struct {
				Name      string `json:"name"`
				Kind      string `json:"kind"`
				Requires  string `json:"requires,omitempty"`
				Available bool   `json:"available"`
				Notes     string `json:"notes,omitempty"`
			}

			catalog := map[string]any{
				"sources": []sourceInfo{
					{
						Name:      "crtsh",
						Kind:      "api",
						Available: true,
						Notes:     "Certificate transparency logs via crt.sh. Broadest coverage, occasionally slow.",
					},
					{
						Name:      "hackertarget",
						Kind:      "api",
						Available: true,
						Notes:     "Free tier throttles hard; queried at a strict rate.",
					},
					{
						Name:      "assetfinder",
						Kind:      "tool",
						Requires:  "assetfinder binary on PATH",
						Available: true,
						Notes:     "Silently contributes nothing when the binary is missing.",
					},
					{
						Name:      "subfinder",
						Kind:      "tool",
						Requires:  "subfinder binary on PATH",
						Available: true,
						Notes:     "Silently contributes nothing when the binary is missing.",
					},
					{
						Name:      "securitytrails",
						Kind:      "api",
						Requires:  "API key",
						Available: s.config.SecurityTrailsKey != "",
						Notes:     "Key comes from the server configuration or the environment.",
					},
				},
			}
			return jsonResource("jshound://sources", catalog)
		},
	)
}

// ═══════════════════════════════════════════════════════════════════════════
// jshound://detectors — Built-in detection rule inventory
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addDetectorsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         "jshound://detectors",
			Name:        "Detector Inventory",
			Description: "Built-in secret detection providers with their versions and rule counts.",
			MIMEType:    "application/json",
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			infos := plugin.NewDefaultRegistry().Providers()

			total := 0
			for _, info := range infos {
				total += info.Rules
			}
			catalog := map[string]any{
				"providers":   infos,
				"total_rules": total,
			}
			return jsonResource("jshound://detectors", catalog)
		},
	)
}
