package mcputil

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrorResult creates a standardized MCP error result.
//
// Example usage:
//
//	return mcputil.ErrorResult(fmt.Sprintf("Run failed: %v", err)), nil, nil
func ErrorResult(message string) *mcp.CallToolResult {
	return textResult(message, true)
}

// SuccessResult creates a standardized MCP success result.
func SuccessResult(message string) *mcp.CallToolResult {
	return textResult(message, false)
}

// SuccessResultWithArtifact creates a success result that returns an artifact, typically
// the run record of a step.
//
// Example usage:
//
//	result, artifact := mcputil.SuccessResultWithArtifact("SUCCESS", run)
//	return result, artifact, nil
func SuccessResultWithArtifact(message string, artifact any) (*mcp.CallToolResult, any) {
	return textResult(message, false), artifact
}

// OutcomeResult creates a result carrying an artifact whether or not the operation failed.
// A failed MATLAB run is reported with IsError set but still returns its run record.
func OutcomeResult(message string, failed bool, artifact any) (*mcp.CallToolResult, any) {
	return textResult(message, failed), artifact
}

func textResult(message string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: isError,
	}
}
