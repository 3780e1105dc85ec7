//go:build windows

package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

// setDaemonSysProcAttr puts the child in its own process group so Ctrl+C in
// the launching console is not delivered to it.
func setDaemonSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}

// processExists trusts the PID file; a dead daemon shows up as an API that
// refuses connections.
func processExists(pid int) bool {
	return pid > 0
}

// signalTerm kills outright; Windows has no SIGTERM for console-less children.
func signalTerm(proc *os.Process) error {
	return proc.Kill()
}
