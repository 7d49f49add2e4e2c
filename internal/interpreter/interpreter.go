// Package interpreter builds the process that runs a materialized MATLAB script.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/alexandremahdhaoui/matlab-ci/internal/matlabrelease"
	"github.com/alexandremahdhaoui/matlab-ci/internal/script"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
	"github.com/google/shlex"
)

// Interpreter turns a script handle into a command ready to be started.
type Interpreter interface {
	// Command returns the command running h. The caller sets Dir, Env and the output pipes.
	Command(ctx context.Context, h script.Handle) (*exec.Cmd, error)
	// Env returns variables the interpreter adds to the process environment.
	Env() map[string]string
}

var (
	errMATLABNotFound = errors.New("MATLAB executable not found")
	errResolvingRoot  = errors.New("resolving MATLAB root")
	errParsingExec    = errors.New("parsing interpreter command line")
)

// ----------------------------------------------------- MATLAB ----------------------------------------------------- //

// MATLAB runs scripts with the matlab executable of an installation.
type MATLAB struct {
	// Root is the MATLAB installation directory (matlabroot).
	Root string
}

var _ Interpreter = MATLAB{}

// Executable returns the path to the matlab launcher.
func (m MATLAB) Executable() string {
	return filepath.Join(m.Root, "bin", executableName())
}

// Resolve returns m with an absolute Root. An empty Root is derived from the matlab
// launcher found on PATH, following symlinks to the installation.
func (m MATLAB) Resolve() (MATLAB, error) {
	if m.Root != "" {
		root, err := filepath.Abs(m.Root)
		if err != nil {
			return MATLAB{}, flaterrors.Join(err, errResolvingRoot)
		}
		return MATLAB{Root: root}, nil
	}

	exe, err := exec.LookPath(executableName())
	if err != nil {
		return MATLAB{}, flaterrors.Join(err, errMATLABNotFound, errResolvingRoot)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return MATLAB{}, flaterrors.Join(err, errResolvingRoot)
	}

	exe, err = filepath.Abs(exe)
	if err != nil {
		return MATLAB{}, flaterrors.Join(err, errResolvingRoot)
	}

	return MATLAB{Root: filepath.Dir(filepath.Dir(exe))}, nil
}

func executableName() string {
	if runtime.GOOS == "windows" {
		return "matlab.exe"
	}
	return "matlab"
}

// Command implements Interpreter.
func (m MATLAB) Command(ctx context.Context, h script.Handle) (*exec.Cmd, error) {
	exe := m.Executable()
	if _, err := os.Stat(exe); err != nil {
		return nil, flaterrors.Join(err, fmt.Errorf("%w in %q", errMATLABNotFound, m.Root))
	}

	return exec.CommandContext(ctx, exe, m.Args(h)...), nil
}

// Args returns the startup options running h. Releases older than R2018b have no -batch
// option and need an explicit exit status wrapper.
func (m MATLAB) Args(h script.Handle) []string {
	info, err := matlabrelease.Read(m.Root)
	if err != nil || info.SupportsBatch() {
		return []string{"-batch", h.ScriptName}
	}

	args := []string{
		"-nosplash",
		"-nodesktop",
		"-r",
		fmt.Sprintf(
			"try, run('%s'); catch e, disp(getReport(e,'extended')); exit(1); end; exit(0);",
			script.QuotePath(h.ScriptPath),
		),
	}
	if runtime.GOOS == "windows" {
		args = append(args, "-wait", "-log")
	}

	return args
}

// Env implements Interpreter. MATLAB_ROOT is exported and the MATLAB bin directory is
// prepended to PATH.
func (m MATLAB) Env() map[string]string {
	bin := filepath.Join(m.Root, "bin")
	path := bin
	if p := os.Getenv("PATH"); p != "" {
		path = bin + string(os.PathListSeparator) + p
	}

	return map[string]string{
		"MATLAB_ROOT": m.Root,
		"PATH":        path,
	}
}

// ----------------------------------------------------- EXEC ------------------------------------------------------- //

// Exec runs scripts with an arbitrary command line; the script path is appended as the last argument.
type Exec struct {
	Argv []string
}

var _ Interpreter = Exec{}

// ParseExec splits a command line such as `"/opt/my matlab/bin/matlab" -sd /tmp` with shell quoting rules.
func ParseExec(commandLine string) (Exec, error) {
	argv, err := shlex.Split(commandLine)
	if err != nil {
		return Exec{}, flaterrors.Join(err, errParsingExec)
	}
	if len(argv) == 0 {
		return Exec{}, flaterrors.Join(errors.New("empty command line"), errParsingExec)
	}

	return Exec{Argv: argv}, nil
}

// Command implements Interpreter.
func (e Exec) Command(ctx context.Context, h script.Handle) (*exec.Cmd, error) {
	if len(e.Argv) == 0 {
		return nil, errors.New("no interpreter configured")
	}

	args := append(append([]string{}, e.Argv[1:]...), h.ScriptPath)

	return exec.CommandContext(ctx, e.Argv[0], args...), nil
}

// Env implements Interpreter.
func (e Exec) Env() map[string]string {
	return nil
}
