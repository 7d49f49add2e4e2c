//go:build !unix

package runner

import "os/exec"

// setProcessGroup is a no-op: exec.CommandContext kills the direct child only.
func setProcessGroup(*exec.Cmd) {}
