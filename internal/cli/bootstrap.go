package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alexandremahdhaoui/matlab-ci/internal/version"
)

// Config holds the configuration for CLI bootstrap.
type Config struct {
	// Name is the command name (e.g., "matlab-ci")
	Name string

	// Version information (typically set via ldflags)
	Version        string
	CommitSHA      string
	BuildTimestamp string

	// VersionDetails returns extra lines for the version output (optional).
	// It is only called when the version is printed.
	VersionDetails func() map[string]string

	// RunCLI is the function to execute in normal CLI mode.
	// It receives the arguments without the program name.
	RunCLI func(args []string) error

	// RunMCP is the function to execute in MCP server mode (optional)
	// If nil, --mcp flag will result in an error
	RunMCP func() error

	// SuccessHandler is called when RunCLI completes successfully (optional)
	SuccessHandler func()

	// FailureHandler is called when RunCLI returns an error that does not carry
	// its own exit code (optional).
	FailureHandler func(error)
}

// ExitCoder is implemented by errors that choose the process exit code themselves.
// Such errors are considered already reported: FailureHandler is not called for them.
type ExitCoder interface {
	error
	ExitCode() int
}

// Bootstrap provides a unified entry point for the command.
// It handles version flags, MCP mode, and CLI execution with standardized error handling.
//
// This function will call os.Exit and never return.
func Bootstrap(cfg Config) {
	os.Exit(Execute(cfg, os.Args[1:], os.Stdout, os.Stderr))
}

// Execute runs cfg against args and returns the process exit code.
func Execute(cfg Config, args []string, stdout, stderr io.Writer) int {
	// Check for version flag
	for _, arg := range args {
		if arg == "version" || arg == "--version" || arg == "-v" {
			versionInfo := version.New(cfg.Name)
			versionInfo.Version = cfg.Version
			versionInfo.CommitSHA = cfg.CommitSHA
			versionInfo.BuildTimestamp = cfg.BuildTimestamp
			if cfg.VersionDetails != nil {
				versionInfo.Details = cfg.VersionDetails()
			}

			versionInfo.Fprint(stdout)
			return 0
		}
	}

	// Check for --mcp flag to run as MCP server
	for _, arg := range args {
		if arg == "--mcp" {
			if cfg.RunMCP == nil {
				_, _ = fmt.Fprintf(stderr, "Error: MCP mode not supported for %s\n", cfg.Name)
				return 1
			}
			if err := cfg.RunMCP(); err != nil {
				_, _ = fmt.Fprintf(stderr, "MCP server error: %v\n", err)
				return 1
			}
			return 0
		}
	}

	// Normal CLI mode
	if err := cfg.RunCLI(args); err != nil {
		var coder ExitCoder
		if errors.As(err, &coder) {
			return coder.ExitCode()
		}

		if cfg.FailureHandler != nil {
			cfg.FailureHandler(err)
		}
		return 1
	}

	if cfg.SuccessHandler != nil {
		cfg.SuccessHandler()
	}
	return 0
}
