package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexandremahdhaoui/matlab-ci/internal/mcpserver"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/matlabci"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/mcptypes"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/mcputil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// runMCPServer starts the matlab-ci MCP server with stdio transport.
// Command output goes to stderr since stdout carries the JSON-RPC stream.
func runMCPServer() error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	return newMCPServer(a).RunDefault()
}

func newMCPServer(a *app) *mcpserver.Server {
	server := mcpserver.New(Name, Version, a.log)

	mcpserver.RegisterTool(server, &mcp.Tool{
		Name:        "run-command",
		Description: "Run a MATLAB command in a workspace and return its run record",
	}, a.handleRunCommand)

	mcpserver.RegisterTool(server, &mcp.Tool{
		Name:        "run-commands",
		Description: "Run several MATLAB commands one after the other and return their run records",
	}, a.handleRunCommands)

	mcpserver.RegisterTool(server, &mcp.Tool{
		Name:        "run-tests",
		Description: "Run the MATLAB tests of a workspace, optionally writing test artifacts, and return the run record",
	}, a.handleRunTests)

	return server
}

// handleRunCommand handles the "run-command" tool call from MCP clients.
func (a *app) handleRunCommand(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input mcptypes.RunCommandInput,
) (*mcp.CallToolResult, any, error) {
	workspace := firstNonEmpty(input.Workspace, a.envs.Workspace)
	if result := mcputil.ValidateRequiredWithPrefix("Run failed", map[string]string{
		"workspace": workspace,
	}); result != nil {
		return result, nil, nil
	}

	run, err := a.execute(ctx, execution{
		StepSpec:   matlabci.StepSpec{Name: "run-command", Command: input.Command, Env: input.Env},
		Workspace:  workspace,
		MatlabRoot: input.MatlabRoot,
		EnvFile:    firstNonEmpty(input.EnvFile, a.envs.EnvFile),
	})

	return runResult(run, err)
}

// handleRunCommands runs every command even when an earlier one fails.
func (a *app) handleRunCommands(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input mcptypes.BatchRunCommandInput,
) (*mcp.CallToolResult, any, error) {
	runs, errorMsgs := mcputil.HandleBatch(ctx, input.Commands,
		func(ctx context.Context, in mcptypes.RunCommandInput) (*mcp.CallToolResult, any, error) {
			return a.handleRunCommand(ctx, req, in)
		})

	result, out := mcputil.FormatBatchResult("run-commands", runs, errorMsgs)
	return result, out, nil
}

// handleRunTests handles the "run-tests" tool call from MCP clients.
func (a *app) handleRunTests(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input mcptypes.RunTestsInput,
) (*mcp.CallToolResult, any, error) {
	workspace := firstNonEmpty(input.Workspace, a.envs.Workspace)
	if result := mcputil.ValidateRequiredWithPrefix("Test run failed", map[string]string{
		"workspace": workspace,
	}); result != nil {
		return result, nil, nil
	}

	opts, err := input.Options()
	if err != nil {
		return mcputil.ErrorResult(fmt.Sprintf("Test run failed: %v", err)), nil, nil
	}

	run, err := a.execute(ctx, execution{
		StepSpec:   matlabci.StepSpec{Name: "run-tests", Tests: &opts, Env: input.Env},
		Workspace:  workspace,
		MatlabRoot: input.MatlabRoot,
		EnvFile:    firstNonEmpty(input.EnvFile, a.envs.EnvFile),
	})

	return runResult(run, err)
}

// runResult reports a FAILURE run as an error result that still carries the run record.
func runResult(run matlabci.Run, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return mcputil.ErrorResult(fmt.Sprintf("Run failed: %v", err)), nil, nil
	}

	message := fmt.Sprintf("%s (exit code %d)", run.Result, run.ExitCode)
	if run.Result == matlabci.ResultSuccess {
		result, artifact := mcputil.SuccessResultWithArtifact(message, run)
		return result, artifact, nil
	}

	result, artifact := mcputil.OutcomeResult(message, true, run)
	return result, artifact, nil
}
