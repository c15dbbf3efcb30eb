package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts adds the guided workflow prompts to the MCP server.
func (s *Server) registerPrompts() {
	s.addSecretAuditPrompt()
}

// ═══════════════════════════════════════════════════════════════════════════
// secret_audit — Full JavaScript secret audit workflow
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addSecretAuditPrompt() {
	s.mcp.AddPrompt(
		&mcp.Prompt{
			Name:        "secret_audit",
			Description: "Full JavaScript secret audit workflow: enumerate the domain, scan its scripts, and report leaked credentials by severity.",
			Arguments: []*mcp.PromptArgument{
				{Name: "domain", Description: "Root domain to audit (e.g. example.com)", Required: true},
				{Name: "pace", Description: "Scan pace: 'normal' or 'gentle' (low concurrency, rate-limited)", Required: false},
			},
		},
		func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			domain := req.Params.Arguments["domain"]
			if domain == "" {
				return nil, fmt.Errorf("'domain' argument is required")
			}

			scanAdvice := `{"domain": "` + domain + `"}`
			if req.Params.Arguments["pace"] == "gentle" {
				scanAdvice = `{"domain": "` + domain + `", "concurrency": 5, "rate_limit": 10}`
			}

			return &mcp.GetPromptResult{
				Description: fmt.Sprintf("Secret Audit: %s", domain),
				Messages: []*mcp.PromptMessage{
					{
						Role: "user",
						Content: &mcp.TextContent{
							Text: fmt.Sprintf(`Audit %s for secrets leaked through its JavaScript.

## Phase 1: Scope
1. Confirm with the user that they are authorized to scan %s.
2. Run enumerate_subdomains on %s and report how many hosts are in scope.
3. If the count looks wrong (zero, or thousands), stop and check the domain spelling with the user before sending any traffic.

## Phase 2: Scan
4. Run scan_domain with %s, seeding "subdomains" from phase 1 so enumeration is not repeated.
5. Watch the streamed stage progress; if a stage reports mostly errors, note it for the report.

## Phase 3: Report
Compile the findings into a structured report:
1. Executive summary (total findings, highest severity, affected hosts)
2. Findings by severity, then by plugin
3. Per finding: rule, asset URL, line, and the redacted match
4. Hosts and scripts that failed to fetch (coverage gaps)
5. Remediation advice: rotate every exposed credential, then remove it from the served bundle

The matched values in the output are redacted. Point the user at the local scan artifacts for the full evidence.`,
								domain, domain, domain, scanAdvice),
						},
					},
				},
			}, nil
		},
	)
}
