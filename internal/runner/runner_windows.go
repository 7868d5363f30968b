//go:build windows

package runner

import "os/exec"

// Windows has no process groups or SIGTERM; the child is killed directly.
func setProcessGroup(cmd *exec.Cmd) {}

func terminate(cmd *exec.Cmd) { cmd.Process.Kill() }

func kill(cmd *exec.Cmd) { cmd.Process.Kill() }
