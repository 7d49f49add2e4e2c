package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexandremahdhaoui/matlab-ci/internal/cmdutil"
	"github.com/alexandremahdhaoui/matlab-ci/internal/envexpand"
	"github.com/alexandremahdhaoui/matlab-ci/internal/gitutil"
	"github.com/alexandremahdhaoui/matlab-ci/internal/interpreter"
	"github.com/alexandremahdhaoui/matlab-ci/internal/runner"
	"github.com/alexandremahdhaoui/matlab-ci/internal/script"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/matlabci"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// app holds what every command and MCP tool shares.
type app struct {
	envs Envs
	log  *zap.Logger
	// sink receives the command output: stdout for the CLI, stderr in MCP mode.
	sink io.Writer

	// global flags
	workspace  string
	matlabRoot string
	envFile    string
	env        []string
}

// execution describes one command or test run: a step plus where and with what it runs.
// The step's Env holds every variable layered above the env file.
type execution struct {
	matlabci.StepSpec

	Workspace  string
	MatlabRoot string
	EnvFile    string
}

var (
	errExecuting         = errors.New("executing step")
	errSelectingMATLAB   = errors.New("selecting MATLAB interpreter")
	errInvalidAssignment = errors.New("invalid KEY=VALUE assignment")
)

// execute runs ex and returns its run record. The record is valid even when an error is
// returned, as long as the run got past materialization.
func (a *app) execute(ctx context.Context, ex execution) (matlabci.Run, error) {
	log := a.log.With(zap.String("step", ex.Name))

	env, err := cmdutil.Environment(ex.EnvFile, ex.Env)
	if err != nil {
		return matlabci.Run{}, flaterrors.Join(err, errExecuting)
	}

	interp, err := a.interpreter(ex.MatlabRoot, env)
	if err != nil {
		return matlabci.Run{}, flaterrors.Join(err, errExecuting)
	}

	// The interpreter was resolved from env, so its variables (MATLAB_ROOT, PATH) win.
	for k, v := range interp.Env() {
		env[k] = v
	}

	workspace, err := filepath.Abs(firstNonEmpty(ex.Workspace, "."))
	if err != nil {
		return matlabci.Run{}, flaterrors.Join(err, errExecuting)
	}

	stepType := ex.Type()
	req := script.Request{Command: ex.Command, Workspace: workspace, Env: env}
	if stepType == matlabci.StepTypeTests {
		req = ex.Tests.Request(workspace, env)
	}

	log.Debug("running step", zap.String("workspace", workspace), zap.String("type", string(stepType)))

	startedAt := time.Now().UTC()
	res, runErr := runner.New(interp, runner.WithLogger(log)).Run(ctx, req, a.sink)
	if runErr != nil && errors.Is(runErr, script.ErrMaterialization) {
		return matlabci.Run{}, flaterrors.Join(runErr, errExecuting)
	}

	out := matlabci.Run{
		ID:        uuid.NewString(),
		Step:      ex.Name,
		Type:      stepType,
		Command:   req.Command,
		ExitCode:  res.ExitCode,
		Result:    matlabci.ResultFromExitCode(res.ExitCode),
		StartedAt: startedAt.Format(time.RFC3339Nano),
		Duration:  res.Duration.String(),
	}

	if sha, err := gitutil.CommitSHA(ctx, workspace); err == nil {
		out.Revision = sha
	} else {
		log.Debug("workspace revision unknown", zap.Error(err))
	}

	if stepType == matlabci.StepTypeTests {
		for _, artifact := range ex.Tests.Artifacts() {
			_, statErr := os.Stat(artifact.Resolve(workspace))
			out.Artifacts = append(out.Artifacts, matlabci.ReportArtifact{
				Type:   artifact.Kind.Name,
				Path:   artifact.Path,
				Exists: statErr == nil,
			})
		}
	}

	if runErr != nil {
		return out, flaterrors.Join(runErr, errExecuting)
	}

	return out, nil
}

// interpreter returns the custom interpreter when MATLAB_CI_INTERPRETER is set, otherwise
// the MATLAB installation at root (expanded against env), $MATLAB_ROOT or on PATH.
func (a *app) interpreter(root string, env map[string]string) (interpreter.Interpreter, error) {
	if a.envs.Interpreter != "" {
		e, err := interpreter.ParseExec(a.envs.Interpreter)
		if err != nil {
			return nil, flaterrors.Join(err, errSelectingMATLAB)
		}
		return e, nil
	}

	root = envexpand.Expand(firstNonEmpty(root, a.matlabRoot, a.envs.MatlabRoot), env)

	m, err := interpreter.MATLAB{Root: root}.Resolve()
	if err != nil {
		return nil, flaterrors.Join(err, errSelectingMATLAB)
	}

	a.log.Debug("selected MATLAB", zap.String("root", m.Root))

	return m, nil
}

// report writes the outcome of run to the sink.
func (a *app) report(run matlabci.Run) {
	_, _ = fmt.Fprintf(a.sink, "%s: %s (exit code %d, %s)\n", run.Step, run.Result, run.ExitCode, run.Duration)

	for _, artifact := range run.Artifacts {
		status := "written"
		if !artifact.Exists {
			status = "missing"
		}
		_, _ = fmt.Fprintf(a.sink, "  %s: %s (%s)\n", artifact.Type, artifact.Path, status)
	}
}

// inlineEnv parses the --env assignments.
func (a *app) inlineEnv() (map[string]string, error) {
	return parseAssignments(a.env)
}

func parseAssignments(assignments []string) (map[string]string, error) {
	out := make(map[string]string, len(assignments))
	for _, kv := range assignments {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, flaterrors.Join(fmt.Errorf("%q", kv), errInvalidAssignment)
		}
		out[key] = value
	}
	return out, nil
}

// mergeEnv returns the union of layers, later layers taking precedence.
func mergeEnv(layers ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
