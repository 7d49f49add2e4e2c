//go:build unit

package mcputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequired_AllFieldsValid(t *testing.T) {
	assert.Nil(t, ValidateRequired(map[string]string{
		"command":    "disp(1)",
		"matlabRoot": "/opt/matlab",
	}))
}

func TestValidateRequired_EmptyMap(t *testing.T) {
	assert.Nil(t, ValidateRequired(map[string]string{}))
}

func TestValidateRequired_OneFieldEmpty(t *testing.T) {
	result := ValidateRequired(map[string]string{
		"command":    "disp(1)",
		"matlabRoot": "",
	})

	assert.True(t, result.IsError)
	assert.Equal(t, "Operation failed: missing required field 'matlabRoot'", text(t, result))
}

func TestValidateRequiredWithPrefix_FirstMissingInNameOrder(t *testing.T) {
	result := ValidateRequiredWithPrefix("Run failed", map[string]string{
		"workspace":  "",
		"matlabRoot": "",
	})

	assert.True(t, result.IsError)
	assert.Equal(t, "Run failed: missing required field 'matlabRoot'", text(t, result))
}
