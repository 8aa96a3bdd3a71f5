// Package driving holds the inbound ports used by the CLI, HTTP API, MCP
// server and inbox watcher. internal/core/services implements them.
package driving
