// Package mcptypes holds the input types of the matlab-ci MCP tools.
package mcptypes

import (
	"sort"

	"github.com/alexandremahdhaoui/matlab-ci/internal/testrun"
)

// RunCommandInput is the input of the run-command tool.
type RunCommandInput struct {
	// Command is the MATLAB command text. It may be empty.
	Command string `json:"command" jsonschema:"MATLAB command text"`
	// Workspace is the directory the command runs in. Defaults to the server's
	// MATLAB_CI_WORKSPACE; the call is rejected when neither is set.
	Workspace string `json:"workspace,omitempty" jsonschema:"directory the command runs in"`
	// MatlabRoot overrides MATLAB_ROOT for this call.
	MatlabRoot string `json:"matlabRoot,omitempty" jsonschema:"MATLAB installation root"`
	// Env holds variables for this call; they take precedence over EnvFile.
	Env map[string]string `json:"env,omitempty" jsonschema:"environment variables for the command"`
	// EnvFile is an optional KEY=VALUE file.
	EnvFile string `json:"envFile,omitempty" jsonschema:"path to an env file"`
}

// BatchRunCommandInput is the input of the run-commands tool.
type BatchRunCommandInput struct {
	Commands []RunCommandInput `json:"commands" jsonschema:"commands to run"`
}

// RunTestsInput is the input of the run-tests tool.
type RunTestsInput struct {
	// Workspace is the directory the command runs in. Defaults to the server's
	// MATLAB_CI_WORKSPACE; the call is rejected when neither is set.
	Workspace string `json:"workspace,omitempty" jsonschema:"directory the command runs in"`
	// MatlabRoot overrides MATLAB_ROOT for this call.
	MatlabRoot string `json:"matlabRoot,omitempty" jsonschema:"MATLAB installation root"`
	// Env holds variables for this call; they take precedence over EnvFile.
	Env map[string]string `json:"env,omitempty" jsonschema:"environment variables for the command"`
	// EnvFile is an optional KEY=VALUE file.
	EnvFile string `json:"envFile,omitempty" jsonschema:"path to an env file"`
	// Artifacts maps artifact names (pdf, tap, junit, stmResults, cobertura, modelCoverage)
	// to paths. An empty path selects the default path.
	Artifacts map[string]string `json:"artifacts,omitempty" jsonschema:"test artifacts to produce by name"`
}

// Options returns the test options selected by the input.
func (in RunTestsInput) Options() (testrun.Options, error) {
	names := make([]string, 0, len(in.Artifacts))
	for name := range in.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := testrun.Options{}
	for _, name := range names {
		if err := out.Set(name, in.Artifacts[name]); err != nil {
			return testrun.Options{}, err
		}
	}

	return out, nil
}
