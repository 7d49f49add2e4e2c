package mcputil

import (
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ValidateRequired checks if required fields are present and returns an MCP error result if not.
// Returns nil if all fields are valid.
func ValidateRequired(fields map[string]string) *mcp.CallToolResult {
	return ValidateRequiredWithPrefix("Operation failed", fields)
}

// ValidateRequiredWithPrefix checks required fields and uses a custom error prefix.
// Fields are checked in name order so the reported field is stable.
//
// Example usage:
//
//	if result := mcputil.ValidateRequiredWithPrefix("Run failed", map[string]string{
//	    "matlabRoot": root,
//	}); result != nil {
//	    return result, nil, nil
//	}
func ValidateRequiredWithPrefix(prefix string, fields map[string]string) *mcp.CallToolResult {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if fields[name] == "" {
			return ErrorResult(fmt.Sprintf("%s: missing required field '%s'", prefix, name))
		}
	}
	return nil
}
