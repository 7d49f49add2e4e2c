package matlabci

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
	"sigs.k8s.io/yaml"
)

// ReportArtifact is a file produced by a step.
type ReportArtifact struct {
	// Type of artifact, e.g. "tap" or "junit".
	Type string `json:"type"`
	// Path of the artifact relative to the workspace.
	Path string `json:"path"`
	// Exists records whether the file was present once the step finished.
	Exists bool `json:"exists"`
}

// Run records one execution of a step. Command is the command text as configured, before
// variable expansion. Revision is the Git commit of the workspace, when it is a repository.
type Run struct {
	ID        string           `json:"id"`
	Step      string           `json:"step"`
	Type      StepType         `json:"type"`
	Command   string           `json:"command"`
	Revision  string           `json:"revision,omitempty"`
	ExitCode  int              `json:"exitCode"`
	Result    BuildResult      `json:"result"`
	StartedAt string           `json:"startedAt"`
	Duration  string           `json:"duration"`
	Artifacts []ReportArtifact `json:"artifacts,omitempty"`
}

// Report is the run history of a project, stored as yaml.
type Report struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"lastUpdated"`
	Runs        []Run     `json:"runs"`
}

const reportVersion = "1.0"

var (
	errReadingReport = errors.New("reading run report")
	errWritingReport = errors.New("writing run report")
	errRunNotFound   = errors.New("run not found")
)

// ReadReport reads the run report from the specified path.
// Returns an error if the file doesn't exist.
func ReadReport(path string) (Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Report{}, flaterrors.Join(err, errReadingReport)
	}

	out := Report{} //nolint:exhaustruct // unmarshal

	if err := yaml.Unmarshal(b, &out); err != nil {
		return Report{}, flaterrors.Join(err, errReadingReport)
	}

	if out.Runs == nil {
		out.Runs = []Run{}
	}
	if out.Version == "" {
		out.Version = reportVersion
	}

	return out, nil
}

// ReadOrCreateReport reads the run report from the specified path.
// If the file doesn't exist, it returns an initialized empty report.
func ReadOrCreateReport(path string) (Report, error) {
	report, err := ReadReport(path)
	if errors.Is(err, os.ErrNotExist) {
		return Report{
			Version:     reportVersion,
			LastUpdated: time.Now().UTC(),
			Runs:        []Run{},
		}, nil
	}
	return report, err
}

// WriteReport writes the run report to the specified path, creating parent directories.
func WriteReport(path string, report Report) error {
	report.LastUpdated = time.Now().UTC()

	b, err := yaml.Marshal(report)
	if err != nil {
		return flaterrors.Join(err, errWritingReport)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return flaterrors.Join(err, errWritingReport)
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return flaterrors.Join(err, errWritingReport)
	}

	return nil
}

// AddRun appends run to the report.
func AddRun(report *Report, run Run) {
	if report == nil {
		return
	}
	report.Runs = append(report.Runs, run)
}

// LatestRun returns the most recent run of step.
func LatestRun(report Report, step string) (Run, error) {
	var (
		latest     Run
		latestTime time.Time
		found      bool
	)

	for _, run := range report.Runs {
		if run.Step != step {
			continue
		}

		t, err := time.Parse(time.RFC3339Nano, run.StartedAt)
		if err != nil {
			// Skip runs with invalid timestamps
			continue
		}

		if !found || !t.Before(latestTime) {
			latest = run
			latestTime = t
			found = true
		}
	}

	if !found {
		return Run{}, flaterrors.Join(errors.New("no run found for step: "+step), errRunNotFound)
	}

	return latest, nil
}

// RunsByResult returns all runs with the given result.
func RunsByResult(report Report, result BuildResult) []Run {
	var out []Run
	for _, run := range report.Runs {
		if run.Result == result {
			out = append(out, run)
		}
	}
	return out
}
