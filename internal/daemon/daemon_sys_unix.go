//go:build !windows

package daemon

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setDaemonSysProcAttr detaches the child into its own session so closing
// the terminal does not take the daemon down.
func setDaemonSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// processExists probes with signal 0. EPERM means the PID is alive but owned
// by someone else, which still counts.
func processExists(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

func signalTerm(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
