package daemon

import (
	"path/filepath"

	"github.com/asad-creats/taskagent/internal/config"
)

// Files the daemon keeps under <home>/protected.
const (
	pidFile  = "daemon.pid"
	lockFile = "daemon.lock"
	addrFile = "daemon.addr"
	logFile  = "daemon.log"
)

func daemonFile(home, name string) string {
	return filepath.Join(config.ProtectedDir(home), name)
}

func pidPath(home string) string  { return daemonFile(home, pidFile) }
func lockPath(home string) string { return daemonFile(home, lockFile) }
func addrPath(home string) string { return daemonFile(home, addrFile) }

// LogPath is where a background daemon writes its log.
func LogPath(home string) string { return daemonFile(home, logFile) }
