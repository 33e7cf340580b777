//go:build unix

package shell

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the command in its own process group so that
// cancellation reaches every descendant, not only the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	setGroupKill(cmd)
}

// setGroupKill makes context cancellation SIGKILL the process group led by the child.
func setGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
