package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// writeHolder records our PID in the lock file so a second starter can name
// the process in its error.
func writeHolder(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	return err
}

// lockHolder reads the PID written by writeHolder; 0 when unknown.
func lockHolder(path string) int {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0
	}
	return pid
}

func errAlreadyRunning(path string) error {
	if pid := lockHolder(path); pid > 0 {
		return fmt.Errorf("taskagent is already running (pid %d holds %s)", pid, path)
	}
	return fmt.Errorf("taskagent is already running (could not lock %s)", path)
}
