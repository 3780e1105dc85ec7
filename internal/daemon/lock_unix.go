//go:build !windows

package daemon

import (
	"errors"
	"os"
	"syscall"
)

// daemonLock is an flock on <home>/protected/daemon.lock. The kernel drops it
// when the process dies, so a crash never leaves a stale lock behind.
type daemonLock struct {
	f *os.File
}

func acquireLock(path string) (*daemonLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, errAlreadyRunning(path)
		}
		return nil, err
	}
	if err := writeHolder(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &daemonLock{f: f}, nil
}

func (l *daemonLock) release() {
	if l == nil || l.f == nil {
		return
	}
	_ = l.f.Truncate(0)
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
}
