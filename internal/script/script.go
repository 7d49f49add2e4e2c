// Package script materializes MATLAB command text into a runnable script file.
//
// Every invocation gets its own scratch directory beneath the workspace:
//
//	<workspace>/.matlab-ci/<id>/command_<id>.m
//
// The generated script first changes directory into the workspace and then runs the
// command text verbatim. The scratch directory is owned by a single invocation and must
// be removed by the caller once the interpreter exits.
package script

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexandremahdhaoui/matlab-ci/internal/envexpand"
	"github.com/alexandremahdhaoui/matlab-ci/pkg/flaterrors"
)

// ScratchRoot is the directory, relative to the workspace, holding scratch directories.
const ScratchRoot = ".matlab-ci"

// ErrMaterialization is returned when the scratch directory or the script cannot be written.
var ErrMaterialization = errors.New("materializing MATLAB script")

// Request describes one command invocation.
type Request struct {
	// Command is the MATLAB command text. It may hold several statements and may be empty.
	Command string
	// Workspace is the directory the script changes into before running Command.
	// Relative paths are resolved against the current directory.
	Workspace string
	// Env is used to expand variable references in Command and is passed to the interpreter.
	Env map[string]string
	// SupportFiles are written next to the script (file name -> content) and the scratch
	// directory is added to the MATLAB path.
	SupportFiles map[string]string
}

// Handle points to the files of a materialized request.
type Handle struct {
	ScratchDir string
	ScriptPath string
	// ScriptName is the script file name without its ".m" extension.
	ScriptName string
	// Command is the expanded command text written into the script.
	Command string
	Env     map[string]string
}

// ScratchDir returns the scratch directory used for uniqueID.
func ScratchDir(workspace, uniqueID string) string {
	return filepath.Join(workspace, ScratchRoot, uniqueID)
}

// ScriptName returns a MATLAB-safe script name for uniqueID.
// MATLAB identifiers may not contain dashes.
func ScriptName(uniqueID string) string {
	return "command_" + strings.ReplaceAll(uniqueID, "-", "_")
}

// QuotePath escapes path so it can be used inside a single-quoted MATLAB char vector.
func QuotePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}

// Content returns the script content for the given workspace and expanded command.
func Content(workspace, scratchDir, command string, withPath bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "cd '%s';\n", QuotePath(workspace))
	if withPath {
		fmt.Fprintf(&b, "addpath('%s');\n", QuotePath(scratchDir))
	}
	b.WriteString(command)

	return b.String()
}

// Materialize writes the script for req into a fresh scratch directory named after uniqueID.
// The expanded command text is echoed to sink.
//
// The workspace must exist. On failure the scratch directory is removed again.
func Materialize(req Request, uniqueID string, sink io.Writer) (Handle, error) {
	if uniqueID == "" {
		return Handle{}, flaterrors.Join(errors.New("empty unique id"), ErrMaterialization)
	}

	// The script runs from the scratch directory, so a relative workspace would resolve
	// against the wrong directory.
	workspace, err := filepath.Abs(req.Workspace)
	if err != nil {
		return Handle{}, flaterrors.Join(err, ErrMaterialization)
	}
	req.Workspace = workspace

	command := envexpand.Expand(req.Command, req.Env)

	scratchRoot := filepath.Join(req.Workspace, ScratchRoot)
	if err := os.MkdirAll(scratchRoot, 0o755); err != nil {
		return Handle{}, flaterrors.Join(err, ErrMaterialization)
	}

	scratchDir := ScratchDir(req.Workspace, uniqueID)
	// Mkdir, not MkdirAll: an existing directory means another invocation owns it.
	if err := os.Mkdir(scratchDir, 0o755); err != nil {
		return Handle{}, flaterrors.Join(err, ErrMaterialization)
	}

	h := Handle{
		ScratchDir: scratchDir,
		ScriptName: ScriptName(uniqueID),
		Command:    command,
		Env:        req.Env,
	}
	h.ScriptPath = filepath.Join(scratchDir, h.ScriptName+".m")

	_, _ = fmt.Fprintf(sink, "Generating MATLAB script with content:\n%s\n\n", command)

	if err := write(h, req); err != nil {
		_ = os.RemoveAll(scratchDir)
		return Handle{}, flaterrors.Join(err, ErrMaterialization)
	}

	return h, nil
}

func write(h Handle, req Request) error {
	for name, content := range req.SupportFiles {
		if name != filepath.Base(name) {
			return fmt.Errorf("support file %q must be a plain file name", name)
		}
		if err := os.WriteFile(filepath.Join(h.ScratchDir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}

	content := Content(req.Workspace, h.ScratchDir, h.Command, len(req.SupportFiles) > 0)

	return os.WriteFile(h.ScriptPath, []byte(content), 0o644)
}
