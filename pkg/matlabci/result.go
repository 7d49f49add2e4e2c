package matlabci

// BuildResult is the CI-facing outcome of a step.
type BuildResult string

const (
	ResultSuccess BuildResult = "SUCCESS"
	ResultFailure BuildResult = "FAILURE"
)

// ResultFromExitCode maps an interpreter exit code to a build result: 0 is a success,
// anything else a failure.
func ResultFromExitCode(code int) BuildResult {
	if code == 0 {
		return ResultSuccess
	}
	return ResultFailure
}
