// Package mcpserver exposes jshound as a Model Context Protocol (MCP)
// server, so AI assistants (Claude, VS Code Copilot, Cursor, etc.) can
// drive subdomain enumeration and JavaScript secret hunting through
// natural conversation.
//
// # Architecture
//
// The server is built on the official MCP Go SDK and exposes three
// capability categories:
//
//   - Tools:     Actionable operations (enumerate_subdomains, scan_domain, list_detectors)
//   - Resources: Domain knowledge the AI can read (version, sources, detectors)
//   - Prompts:   A guided workflow template for a full secret audit
//
// # Tool Design
//
// Tool descriptions spell out when to use each tool and when not to,
// input schemas carry enums, defaults, and bounds, and long operations
// stream progress notifications as pipeline stages finish. Matched
// secret values are redacted before they leave the process; the full
// values exist only in the local scan artifacts.
//
// # Transports
//
// Two transport modes are supported:
//
//   - stdio:  Communicates over stdin/stdout (default). Used by IDE integrations.
//   - HTTP:   Streamable HTTP. Used for remote/Docker deployments.
//
// # Usage
//
//	srv := mcpserver.New(&mcpserver.Config{OutputDir: "jshound-out"})
//	err := srv.RunStdio(ctx)
package mcpserver
