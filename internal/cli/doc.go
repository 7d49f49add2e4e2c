// Package cli provides the bootstrap shared by matlab-ci entry points.
//
// Bootstrap handles:
//   - Version information initialization from ldflags
//   - Version flag handling (--version, -v, version)
//   - MCP server mode handling (--mcp flag)
//   - Exit codes, including errors that carry their own (ExitCoder)
//
// Example usage:
//
//	package main
//
//	import (
//	    "github.com/alexandremahdhaoui/matlab-ci/internal/cli"
//	)
//
//	// Version information (set via ldflags)
//	var (
//	    Version        = "dev"
//	    CommitSHA      = "unknown"
//	    BuildTimestamp = "unknown"
//	)
//
//	func main() {
//	    cli.Bootstrap(cli.Config{
//	        Name:           "matlab-ci",
//	        Version:        Version,
//	        CommitSHA:      CommitSHA,
//	        BuildTimestamp: BuildTimestamp,
//	        RunCLI:         runCLI,
//	        RunMCP:         runMCP,
//	    })
//	}
package cli
