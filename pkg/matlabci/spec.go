package matlabci

import (
	"errors"
	"os"

	"github.com/alexandremahdhaoui/matlab-ci/internal/testrun"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
	"sigs.k8s.io/yaml"
)

const (
	// ConfigPath is the default path to the project configuration file.
	ConfigPath = "matlab-ci.yaml"

	// DefaultReportPath is used when the project file does not set reportPath.
	DefaultReportPath = ".matlab-ci/report.yaml"
)

// Spec represents the project configuration read from matlab-ci.yaml.
type Spec struct {
	// Name is the name of the project.
	Name string `json:"name"`

	// MatlabRoot is the MATLAB installation used by every step. It may reference
	// environment variables, e.g. /opt/matlab/$VERSION.
	MatlabRoot string `json:"matlabRoot,omitempty"`

	// Workspace is the directory steps run in. Defaults to the current directory.
	Workspace string `json:"workspace,omitempty"`

	// ReportPath is the path of the run report.
	ReportPath string `json:"reportPath,omitempty"`

	// Env holds variables available to every step.
	Env map[string]string `json:"env,omitempty"`
	// EnvFile is an optional KEY=VALUE file loaded before Env.
	EnvFile string `json:"envFile,omitempty"`

	// Steps run in order; the first failing step stops the run.
	Steps []StepSpec `json:"steps"`
}

// StepSpec is one step of the project: either a command or a test run.
type StepSpec struct {
	Name string `json:"name"`

	// Command is the MATLAB command text of a command step.
	Command string `json:"command,omitempty"`
	// Tests makes this step a test run producing the given artifacts.
	Tests *testrun.Options `json:"tests,omitempty"`

	// Env holds variables for this step only; they take precedence over Spec.Env.
	Env map[string]string `json:"env,omitempty"`
}

// StepType is the type of a step.
type StepType string

const (
	StepTypeCommand StepType = "command"
	StepTypeTests   StepType = "tests"
)

// Type returns the type of the step.
func (s StepSpec) Type() StepType {
	if s.Tests != nil {
		return StepTypeTests
	}
	return StepTypeCommand
}

// Validate validates the StepSpec. An empty command is allowed.
func (s StepSpec) Validate() error {
	errs := NewValidationErrors()

	errs.Add(ValidateRequired(s.Name, "name", "StepSpec"))

	if s.Tests != nil && s.Command != "" {
		errs.AddErrorf("StepSpec %q: command and tests are mutually exclusive", s.Name)
	}

	return errs.ErrorOrNil()
}

// Validate validates the Spec.
func (s *Spec) Validate() error {
	errs := NewValidationErrors()

	errs.Add(ValidateRequired(s.Name, "name", "Spec"))

	if len(s.Steps) == 0 {
		errs.AddErrorf("Spec: at least one step is required")
	}

	seen := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			errs.AddErrorf("steps[%d] (%s): %v", i, step.Name, err)
		}
		if step.Name != "" && seen[step.Name] {
			errs.AddErrorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		seen[step.Name] = true
	}

	return errs.ErrorOrNil()
}

// Step returns the step named name.
func (s *Spec) Step(name string) (StepSpec, bool) {
	for _, step := range s.Steps {
		if step.Name == name {
			return step, true
		}
	}
	return StepSpec{}, false
}

var errReadingSpec = errors.New("reading matlab-ci spec")

// ReadSpecFromPath reads the project configuration from the specified file path.
// Defaults are applied and the result is validated.
func ReadSpecFromPath(path string) (Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, flaterrors.Join(err, errReadingSpec)
	}

	out := Spec{} //nolint:exhaustruct // unmarshal

	if err := yaml.UnmarshalStrict(b, &out); err != nil {
		return Spec{}, flaterrors.Join(err, errReadingSpec)
	}

	if out.Workspace == "" {
		out.Workspace = "."
	}
	if out.ReportPath == "" {
		out.ReportPath = DefaultReportPath
	}

	if err := out.Validate(); err != nil {
		return Spec{}, flaterrors.Join(err, errReadingSpec)
	}

	return out, nil
}
