package daemon

import (
	"log/slog"
	"time"

	"github.com/asad-creats/taskagent/internal/config"
)

// DefaultPort is used when neither options nor config name one.
const DefaultPort = 4280

// StartOptions configures the daemon. Zero Port and PprofAddr fall back to Config.
type StartOptions struct {
	Home       string
	Port       int
	Dev        bool
	PprofAddr  string
	EnableOtel bool           // Prometheus exporter plus HTTP/SSE/model instrumentation
	Config     *config.Config // nil uses config.Default()
	Logger     *slog.Logger
}

// StatusInfo is the result of Status (running or not, PID, listen addr).
type StatusInfo struct {
	Running bool
	PID     int
	Addr    string
}

// StopResult reports what Stop did. Forced means the daemon ignored SIGTERM
// and was killed.
type StopResult struct {
	Stopped bool
	PID     int
	Forced  bool
}

// schedule is how often the background loop runs.
type schedule struct {
	ModelPoll   time.Duration
	SessionIdle time.Duration
}
