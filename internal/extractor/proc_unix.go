//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package extractor

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the tool in its own process group so that
// cancellation also kills the ffmpeg children it forks
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
