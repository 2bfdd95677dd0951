//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package extractor

import "os/exec"

// setProcessGroup is a no-op here; Stream's pipe watchdog bounds the wait
func setProcessGroup(cmd *exec.Cmd) {}
