// Package mcputil provides common utilities for the matlab-ci MCP tools.
//
// It provides reusable patterns for:
//   - Batch handling (HandleBatch, FormatBatchResult)
//   - Input validation (ValidateRequired, ValidateRequiredWithPrefix)
//   - Standardized result creation (ErrorResult, SuccessResult, SuccessResultWithArtifact)
package mcputil
