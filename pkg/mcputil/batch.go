package mcputil

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleBatch runs handler for each spec in order and collects the outcomes.
// A failing spec does not stop the batch.
//
// Returns:
//   - outputs: the output of every successful spec
//   - errorMsgs: one message per failed spec
//
// Example usage:
//
//	outputs, errorMsgs := mcputil.HandleBatch(ctx, input.Commands,
//	    func(ctx context.Context, in mcptypes.RunCommandInput) (*mcp.CallToolResult, any, error) {
//	        return handleRunCommand(ctx, req, in)
//	    })
func HandleBatch[T any](
	ctx context.Context,
	specs []T,
	handler func(context.Context, T) (*mcp.CallToolResult, any, error),
) (outputs []any, errorMsgs []string) {
	outputs = []any{}
	errorMsgs = []string{}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			errorMsgs = append(errorMsgs, err.Error())
			continue
		}

		result, output, err := handler(ctx, spec)

		if err != nil || (result != nil && result.IsError) {
			errorMsgs = append(errorMsgs, extractErrorMessage(result, err))
			continue
		}

		if output != nil {
			outputs = append(outputs, output)
		}
	}

	return outputs, errorMsgs
}

// extractErrorMessage extracts a human-readable error message from MCP result or error.
func extractErrorMessage(result *mcp.CallToolResult, err error) string {
	if err != nil {
		return err.Error()
	}

	if result != nil && len(result.Content) > 0 {
		if textContent, ok := result.Content[0].(*mcp.TextContent); ok {
			return textContent.Text
		}
	}

	return "unknown error"
}

// FormatBatchResult creates an MCP result for batch operations.
// It returns an error result if there were any failures, otherwise a success result.
// The outputs are wrapped in an object because structured content must be a JSON object.
func FormatBatchResult(operation string, outputs []any, errorMsgs []string) (*mcp.CallToolResult, any) {
	out := map[string]any{"results": outputs}

	if len(errorMsgs) > 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("%s completed with %d failure(s): %v", operation, len(errorMsgs), errorMsgs)},
			},
			IsError: true,
		}, out
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s completed: %d succeeded", operation, len(outputs))},
		},
	}, out
}
