//go:build unit

package main

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectMCP(t *testing.T, a *app) *mcp.ClientSession {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := newMCPServer(a).Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "matlab-ci-test", Version: "v0.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func structured(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	out, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok, "structured content: %#v", res.StructuredContent)
	return out
}

func TestMCP_RunCommand(t *testing.T) {
	a, sink := newTestApp(t)
	session := connectMCP(t, a)

	res := callTool(t, session, "run-command", map[string]any{
		"command":   "disp('${GREETING}')",
		"workspace": t.TempDir(),
		"env":       map[string]any{"GREETING": "hello from mcp"},
	})

	assert.False(t, res.IsError, resultText(t, res))
	assert.Equal(t, "SUCCESS (exit code 0)", resultText(t, res))

	run := structured(t, res)
	assert.Equal(t, "run-command", run["step"])
	assert.Equal(t, "SUCCESS", run["result"])
	assert.Equal(t, "command", run["type"])
	assert.Contains(t, sink.String(), "\nhello from mcp\n")
}

func TestMCP_RunCommandFailure(t *testing.T) {
	a, _ := newTestApp(t)
	session := connectMCP(t, a)

	res := callTool(t, session, "run-command", map[string]any{
		"command":   "exit(4)",
		"workspace": t.TempDir(),
	})

	assert.True(t, res.IsError)
	assert.Equal(t, "FAILURE (exit code 4)", resultText(t, res))
}

func TestMCP_RunCommandRequiresWorkspace(t *testing.T) {
	a, _ := newTestApp(t)
	session := connectMCP(t, a)

	res := callTool(t, session, "run-command", map[string]any{"command": "disp(1)"})

	assert.True(t, res.IsError)
	assert.Equal(t, "Run failed: missing required field 'workspace'", resultText(t, res))
}

func TestMCP_WorkspaceFromEnvs(t *testing.T) {
	a, sink := newTestApp(t)
	ws := t.TempDir()
	a.envs.Workspace = ws
	session := connectMCP(t, a)

	res := callTool(t, session, "run-tests", map[string]any{})
	assert.False(t, res.IsError, resultText(t, res))

	res = callTool(t, session, "run-command", map[string]any{"command": "disp('from envs')"})
	assert.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, sink.String(), "\nfrom envs\n")
	assertScratchCleaned(t, ws)
}

func TestMCP_RunCommands(t *testing.T) {
	a, sink := newTestApp(t)
	session := connectMCP(t, a)
	ws := t.TempDir()

	res := callTool(t, session, "run-commands", map[string]any{
		"commands": []any{
			map[string]any{"command": "disp('first')", "workspace": ws},
			map[string]any{"command": "exit(1)", "workspace": ws},
			map[string]any{"command": "disp('third')", "workspace": ws},
		},
	})

	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "run-commands completed with 1 failure(s)")
	assert.Contains(t, sink.String(), "\nfirst\n")
	assert.Contains(t, sink.String(), "\nthird\n")

	results, ok := structured(t, res)["results"].([]any)
	require.True(t, ok)
	assert.Len(t, results, 2)
}

func TestMCP_RunTests(t *testing.T) {
	a, sink := newTestApp(t)
	session := connectMCP(t, a)

	res := callTool(t, session, "run-tests", map[string]any{
		"workspace": t.TempDir(),
		"artifacts": map[string]any{"cobertura": "", "pdf": "report.pdf"},
	})

	assert.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, sink.String(),
		"exit(runMatlabTests('PDFReportPath','report.pdf','CoberturaCodeCoveragePath','matlabTestArtifacts/cobertura.xml'))")

	run := structured(t, res)
	assert.Equal(t, "tests", run["type"])
	artifacts, ok := run["artifacts"].([]any)
	require.True(t, ok)
	assert.Len(t, artifacts, 2)
}

func TestMCP_RunTestsUnknownArtifact(t *testing.T) {
	a, _ := newTestApp(t)
	session := connectMCP(t, a)

	res := callTool(t, session, "run-tests", map[string]any{
		"workspace": t.TempDir(),
		"artifacts": map[string]any{"html": ""},
	})

	assert.True(t, res.IsError)
	assert.Equal(t, `Test run failed: unknown test artifact "html"`, resultText(t, res))
}
