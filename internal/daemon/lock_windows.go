//go:build windows

package daemon

import (
	"errors"
	"io/fs"
	"os"
)

// daemonLock is an exclusively created lock file. Unlike flock it survives a
// crash; `taskagent nuke` or deleting the file clears it.
type daemonLock struct {
	f    *os.File
	path string
}

func acquireLock(path string) (*daemonLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, errAlreadyRunning(path)
		}
		return nil, err
	}
	if err := writeHolder(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	return &daemonLock{f: f, path: path}, nil
}

func (l *daemonLock) release() {
	if l == nil || l.f == nil {
		return
	}
	_ = l.f.Close()
	_ = os.Remove(l.path)
}
