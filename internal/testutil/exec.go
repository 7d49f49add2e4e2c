package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ExecResult contains the results of a command execution.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// getTestTimeout returns the timeout of commands run by tests.
// Default: 10 seconds. Override with MATLAB_CI_TEST_TIMEOUT (e.g., "30s").
func getTestTimeout() time.Duration {
	if timeout := os.Getenv("MATLAB_CI_TEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			return d
		}
	}
	return 10 * time.Second
}

// RunCommandInDir executes a command in dir with the test timeout, capturing stdout and stderr.
func RunCommandInDir(t TestingT, dir, command string, args ...string) ExecResult {
	t.Helper()

	if dir == "" {
		t.Fatal("RunCommandInDir: dir parameter cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), getTestTimeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			exitCode = -1
			err = fmt.Errorf("command timed out after %v: %w", getTestTimeout(), err)
		case errors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			exitCode = -1
		}
	}

	return ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Err:      err,
	}
}

// ExpectSuccess fails the test unless the command exited with code 0.
func ExpectSuccess(t TestingT, result ExecResult) {
	t.Helper()

	if result.Err != nil {
		t.Fatalf("expected command to succeed, but it failed: %v\nStdout: %s\nStderr: %s",
			result.Err, result.Stdout, result.Stderr)
	}

	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d\nStdout: %s\nStderr: %s",
			result.ExitCode, result.Stdout, result.Stderr)
	}
}

// InitGitRepo turns dir into a Git repository with a single commit.
func InitGitRepo(t TestingT, dir string) {
	t.Helper()

	for _, args := range [][]string{
		{"init", "--quiet"},
		{"-c", "user.name=matlab-ci", "-c", "user.email=matlab-ci@example.com",
			"commit", "--quiet", "--allow-empty", "-m", "initial commit"},
	} {
		ExpectSuccess(t, RunCommandInDir(t, dir, "git", args...))
	}
}
