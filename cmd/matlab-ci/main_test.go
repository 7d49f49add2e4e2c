//go:build unit

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexandremahdhaoui/matlab-ci/internal/cli"
	"github.com/alexandremahdhaoui/matlab-ci/internal/logger"
	"github.com/alexandremahdhaoui/matlab-ci/internal/runner"
	"github.com/alexandremahdhaoui/matlab-ci/internal/testutil"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/matlabci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApp returns an app running scripts with the fake MATLAB interpreter.
func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()

	if !testutil.SupportsFakeMATLAB() {
		t.Skip("fake MATLAB needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}

	fake := testutil.WriteFakeInterpreter(t, t.TempDir())
	sink := &bytes.Buffer{}

	return &app{
		envs: Envs{Interpreter: "sh '" + fake + "'"},
		log:  logger.Nop(),
		sink: sink,
	}, sink
}

func executeCmd(a *app, args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func assertScratchCleaned(t *testing.T, workspace string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(workspace, ".matlab-ci"))
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var coder cli.ExitCoder
	require.True(t, errors.As(err, &coder), "expected an error carrying an exit code, got %v", err)
	return coder.ExitCode()
}

// ----------------------------------------------------- COMMAND ---------------------------------------------------- //

func TestCommand_Success(t *testing.T) {
	a, sink := newTestApp(t)
	ws := t.TempDir()

	_, err := executeCmd(a, "command", "-w", ws, "disp('hello world')")
	require.NoError(t, err)

	out := sink.String()
	assert.Contains(t, out, "Generating MATLAB script with content:\ndisp('hello world')\n")
	assert.Contains(t, out, runner.Banner+"\n")
	assert.Contains(t, out, "\nhello world\n")
	assert.Contains(t, out, "command: SUCCESS (exit code 0")
	assertScratchCleaned(t, ws)
}

func TestCommand_FailureSetsExitCode(t *testing.T) {
	a, sink := newTestApp(t)
	ws := t.TempDir()

	_, err := executeCmd(a, "command", "-w", ws, "exit(3)")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, sink.String(), "command: FAILURE (exit code 3")
	assertScratchCleaned(t, ws)
}

func TestCommand_ErrorIsStreamed(t *testing.T) {
	a, sink := newTestApp(t)

	_, err := executeCmd(a, "command", "-w", t.TempDir(), "error('boom')")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, sink.String(), "Error using fake: boom\n")
}

func TestCommand_InlineEnvIsExpanded(t *testing.T) {
	a, sink := newTestApp(t)

	_, err := executeCmd(a, "command", "-w", t.TempDir(), "-e", "GREETING=bonjour", "-e", "WHO=a=b",
		"disp('${GREETING} $WHO')")
	require.NoError(t, err)
	assert.Contains(t, sink.String(), "\nbonjour a=b\n")
}

func TestCommand_EnvFile(t *testing.T) {
	a, sink := newTestApp(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GREETING=\"from file\"\nOTHER=x\n"), 0o644))

	_, err := executeCmd(a, "command", "-w", t.TempDir(), "--env-file", envFile, "-e", "OTHER=inline",
		"disp('%GREETING% ${OTHER}')")
	require.NoError(t, err)
	assert.Contains(t, sink.String(), "\nfrom file inline\n")
}

func TestCommand_FromFile(t *testing.T) {
	a, sink := newTestApp(t)
	file := filepath.Join(t.TempDir(), "build.m")
	require.NoError(t, os.WriteFile(file, []byte("disp('line one')\ndisp('line two')\n"), 0o644))

	_, err := executeCmd(a, "command", "-w", t.TempDir(), "--file", file)
	require.NoError(t, err)
	assert.Contains(t, sink.String(), "\nline one\nline two\n")
}

func TestCommand_FileAndTextConflict(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := executeCmd(a, "command", "--file", "build.m", "disp(1)")
	require.Error(t, err)
	assert.ErrorIs(t, err, errReadingCommand)
}

func TestCommand_InvalidAssignment(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := executeCmd(a, "command", "-w", t.TempDir(), "-e", "=value", "disp(1)")
	require.Error(t, err)
	assert.ErrorIs(t, err, errInvalidAssignment)
}

func TestCommand_EmptyCommand(t *testing.T) {
	a, sink := newTestApp(t)

	_, err := executeCmd(a, "command", "-w", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, sink.String(), "command: SUCCESS")
}

func TestCommand_WorkspaceFromEnvs(t *testing.T) {
	a, sink := newTestApp(t)
	ws := t.TempDir()
	a.envs.Workspace = ws

	_, err := executeCmd(a, "command", "disp(pwd)")
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(ws)
	require.NoError(t, err)
	out := sink.String()
	assert.True(t, strings.Contains(out, "\n"+ws+"\n") || strings.Contains(out, "\n"+resolved+"\n"), out)
}

// ----------------------------------------------------- TEST ------------------------------------------------------- //

func TestTest_ArtifactFlags(t *testing.T) {
	a, sink := newTestApp(t)
	ws := t.TempDir()

	_, err := executeCmd(a, "test", "-w", ws, "--junit", "--tap=out/results.tap")
	require.NoError(t, err)

	out := sink.String()
	assert.Contains(t, out,
		"exit(runMatlabTests('TAPResultsPath','out/results.tap','JUnitResultsPath','matlabTestArtifacts/junittestresults.xml'))")
	assert.Contains(t, out, "test: SUCCESS")
	assert.Contains(t, out, "  tap: out/results.tap (missing)\n")
	assert.Contains(t, out, "  junit: matlabTestArtifacts/junittestresults.xml (missing)\n")
	assertScratchCleaned(t, ws)
}

func TestTest_NoArtifacts(t *testing.T) {
	a, sink := newTestApp(t)

	_, err := executeCmd(a, "test", "-w", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, sink.String(), "\nexit(runMatlabTests())\n")
}

func TestTest_RejectsArguments(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := executeCmd(a, "test", "--tap", "out/results.tap")
	assert.Error(t, err)
}

// ----------------------------------------------------- RUN -------------------------------------------------------- //

func writeProject(t *testing.T, steps string) (configPath, reportPath, workspace string) {
	t.Helper()

	dir := t.TempDir()
	workspace = filepath.Join(dir, "ws")
	reportPath = filepath.Join(dir, "out", "report.yaml")
	configPath = filepath.Join(dir, matlabci.ConfigPath)

	content := strings.Join([]string{
		"name: demo",
		"workspace: " + workspace,
		"reportPath: " + reportPath,
		"env:",
		"  STAGE: project",
		"steps:",
		steps,
	}, "\n")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	return configPath, reportPath, workspace
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	a, sink := newTestApp(t)
	config, reportPath, ws := writeProject(t, `
  - name: build
    command: disp('building ${STAGE} ${LEVEL}')
    env:
      LEVEL: step
  - name: fail
    command: exit(2)
  - name: never
    command: disp('never reached')
`)

	_, err := executeCmd(a, "run", "--config", config)
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(t, err))

	out := sink.String()
	assert.Contains(t, out, "\nbuilding project step\n")
	assert.Contains(t, out, "fail: FAILURE (exit code 2")
	assert.NotContains(t, out, "\nnever reached\n")
	assertScratchCleaned(t, ws)

	report, err := matlabci.ReadReport(reportPath)
	require.NoError(t, err)
	require.Len(t, report.Runs, 2)
	assert.Equal(t, "build", report.Runs[0].Step)
	assert.Equal(t, matlabci.ResultSuccess, report.Runs[0].Result)
	assert.Equal(t, "disp('building ${STAGE} ${LEVEL}')", report.Runs[0].Command)
	assert.Equal(t, "fail", report.Runs[1].Step)
	assert.Equal(t, matlabci.ResultFailure, report.Runs[1].Result)
	assert.Equal(t, 2, report.Runs[1].ExitCode)
}

func TestRun_SelectedStepsAndReport(t *testing.T) {
	a, sink := newTestApp(t)
	config, reportPath, _ := writeProject(t, `
  - name: build
    command: disp('build')
  - name: test
    tests:
      tap: ""
`)

	_, err := executeCmd(a, "run", "--config", config, "--step", "test", "-e", "STAGE=cli")
	require.NoError(t, err)
	assert.Contains(t, sink.String(), "exit(runMatlabTests())")
	assert.NotContains(t, sink.String(), "\nbuild\n")

	report, err := matlabci.ReadReport(reportPath)
	require.NoError(t, err)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, matlabci.StepTypeTests, report.Runs[0].Type)

	out, err := executeCmd(a, "report", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "build\tnever run\n")
	assert.Contains(t, out, "test\tSUCCESS\texit code 0\t")

	out, err = executeCmd(a, "report", "--config", config, "--failed")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_UnknownStep(t *testing.T) {
	a, _ := newTestApp(t)
	config, _, _ := writeProject(t, "  - name: build\n    command: disp('build')\n")

	_, err := executeCmd(a, "run", "--config", config, "--step", "deploy")
	require.Error(t, err)
	assert.ErrorIs(t, err, errRunningSpec)
	assert.Contains(t, err.Error(), `unknown step "deploy"`)
}

func TestRun_MissingConfig(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := executeCmd(a, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// ----------------------------------------------------- HELPERS ---------------------------------------------------- //

func TestNewApp(t *testing.T) {
	t.Setenv("MATLAB_CI_LOG_OUTPUT", filepath.Join(t.TempDir(), "matlab-ci.log"))

	t.Run("default level", func(t *testing.T) {
		a, err := newApp(&bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "info", a.envs.LogLevel)
	})

	t.Run("misspelled level", func(t *testing.T) {
		t.Setenv("MATLAB_CI_LOG_LEVEL", "debgu")

		_, err := newApp(&bytes.Buffer{})
		assert.ErrorIs(t, err, errSettingUp)
		assert.Contains(t, err.Error(), "debgu")
	})
}

func TestSince(t *testing.T) {
	hourAgo := time.Now().Add(-time.Hour).Format(time.RFC3339Nano)
	assert.Equal(t, "1 hour ago", since(hourAgo))
	assert.Equal(t, "yesterday-ish", since("yesterday-ish"))
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"A=1", "B=", "C=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "", "C": "x=y"}, got)

	_, err = parseAssignments([]string{"NOVALUE"})
	assert.ErrorIs(t, err, errInvalidAssignment)
}

func TestMergeEnv(t *testing.T) {
	got := mergeEnv(
		map[string]string{"A": "project", "B": "project"},
		map[string]string{"B": "step"},
		nil,
	)
	assert.Equal(t, map[string]string{"A": "project", "B": "step"}, got)
}

func TestInterpreter_MissingMATLAB(t *testing.T) {
	a := &app{log: logger.Nop(), sink: &bytes.Buffer{}}
	t.Setenv("PATH", t.TempDir())

	_, err := a.execute(context.Background(), execution{StepSpec: matlabci.StepSpec{Name: "command"}, Workspace: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, errSelectingMATLAB)
}

func TestInterpreter_RootIsExpanded(t *testing.T) {
	if !testutil.SupportsFakeMATLAB() {
		t.Skip("fake MATLAB needs a POSIX shell")
	}

	dir := t.TempDir()
	root := testutil.WriteFakeMATLABRoot(t, dir, "9.14.0.2206163", "R2023a")
	sink := &bytes.Buffer{}
	a := &app{log: logger.Nop(), sink: sink}

	run, err := a.execute(context.Background(), execution{
		StepSpec: matlabci.StepSpec{
			Name:    "command",
			Command: "disp('hi')",
			Env:     map[string]string{"RELEASE": "R2023a"},
		},
		Workspace:  t.TempDir(),
		MatlabRoot: filepath.Join(dir, "matlab", "$RELEASE"),
	})
	require.NoError(t, err)
	assert.Equal(t, matlabci.ResultSuccess, run.Result)
	assert.Contains(t, sink.String(), "MATLAB_ROOT="+root+"\n")
	assert.Contains(t, sink.String(), "\nhi\n")
}

func TestExecute_RecordsRevision(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found")
	}
	a, _ := newTestApp(t)
	ws := t.TempDir()
	testutil.InitGitRepo(t, ws)

	run, err := a.execute(context.Background(), execution{StepSpec: matlabci.StepSpec{Name: "command", Command: "disp('x')"}, Workspace: ws})
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{40}$`, run.Revision)

	run, err = a.execute(context.Background(), execution{StepSpec: matlabci.StepSpec{Name: "command", Command: "disp('x')"}, Workspace: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, run.Revision)
}
