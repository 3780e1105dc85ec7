// Package daemon runs the taskagent HTTP server in the foreground or as a
// detached background process, guarded by a lock and PID file under home.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asad-creats/taskagent/internal/agent"
	"github.com/asad-creats/taskagent/internal/backend"
	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/httpapi"
	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/otel"
	"github.com/asad-creats/taskagent/internal/store"
)

var errNotRunning = errors.New("taskagent is not running")

// StartForeground serves until ctx is cancelled or the server fails.
func StartForeground(ctx context.Context, opts StartOptions) error {
	if opts.Home == "" {
		return errors.New("home is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Port == 0 {
		opts.Port = cfg.Server.Port
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.PprofAddr == "" {
		opts.PprofAddr = cfg.Server.PprofAddr
	}
	opts.EnableOtel = opts.EnableOtel || cfg.Server.Otel

	// Ensure dirs exist.
	if err := config.EnsureHome(opts.Home); err != nil {
		return err
	}

	// Acquire singleton lock (released on exit).
	lock, err := acquireLock(lockPath(opts.Home))
	if err != nil {
		return err
	}
	defer lock.release()

	// Early port check for clearer error.
	if err := checkPortAvailable(opts.Port); err != nil {
		return err
	}

	srvOpts := httpapi.ServerOptions{
		Addr:        fmt.Sprintf("0.0.0.0:%d", opts.Port),
		Dev:         opts.Dev,
		APIKey:      cfg.Server.APIKey,
		StoreDriver: cfg.Store.Driver,
		Logger:      log,
		Agent: agent.Options{
			Model:        cfg.LLM.Model,
			CommandDelay: cfg.Agent.CommandDelay,
			HistoryLimit: cfg.Agent.HistoryLimit,
		},
	}
	if opts.EnableOtel {
		mp, err := otel.Start(ctx, otel.Resource{StoreDriver: cfg.Store.Driver, LLMProvider: cfg.LLM.Provider})
		if err != nil {
			log.Warn("otel init failed, using plain metrics", "err", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = mp.Shutdown(shutdownCtx)
			}()
			srvOpts.MetricsHandler = mp.Handler
			srvOpts.UseOtelHTTP = true
		}
	}

	st, err := backend.OpenStore(ctx, cfg, opts.Home, log)
	if err != nil {
		return err
	}
	client, err := backend.NewClient(ctx, cfg, log)
	if err != nil {
		_ = st.Close()
		return err
	}
	srvOpts.Store, srvOpts.Client = st, client
	srvOpts.Notify = backend.NewNotifier(cfg, log)
	app, err := httpapi.NewApp(srvOpts)
	if err != nil {
		_ = st.Close()
		return err
	}
	if srvOpts.UseOtelHTTP {
		if err := otel.Register(ctx, taskCounter(app.Store)); err != nil {
			log.Warn("otel instruments not registered", "err", err)
		}
	}

	// Write PID + addr files.
	if err := os.WriteFile(pidPath(opts.Home), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = st.Close()
		return err
	}
	_ = os.WriteFile(addrPath(opts.Home), []byte(srvOpts.Addr+"\n"), 0o644)
	defer func() {
		_ = os.Remove(pidPath(opts.Home))
		_ = os.Remove(addrPath(opts.Home))
	}()

	provider, model, _ := llm.Describe(app.Client)
	log.Info("daemon starting", "addr", srvOpts.Addr, "home", opts.Home, "store", cfg.Store.Driver, "provider", provider, "model", model)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := app.Server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	})
	if opts.PprofAddr != "" {
		g.Go(func() error {
			servePprof(gctx, opts.PprofAddr, log)
			return nil
		})
	}
	g.Go(func() error {
		runScheduler(gctx, app, schedule{ModelPoll: cfg.Agent.ModelPoll, SessionIdle: cfg.Agent.SessionIdle}, log)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return app.Server.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// StartBackground re-executes the current binary as a detached daemon and
// returns its PID.
func StartBackground(ctx context.Context, opts StartOptions) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	if err := config.EnsureHome(opts.Home); err != nil {
		return 0, err
	}
	if st, _ := Status(ctx, opts.Home); st.Running {
		return 0, fmt.Errorf("taskagent already running (pid %d)", st.PID)
	}

	logPath := LogPath(opts.Home)
	logf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	cmd := exec.Command(exe, backgroundArgs(opts)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = logf
	setDaemonSysProcAttr(cmd)
	err = cmd.Start()
	_ = logf.Close() // the child holds its own descriptor
	if err != nil {
		return 0, err
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	// The daemon writes its PID file once it holds the lock and the port.
	deadline := time.NewTimer(startupWait)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return cmd.Process.Pid, ctx.Err()
		case err := <-exited:
			msg := lastLogLine(logPath)
			if msg == "" && err != nil {
				msg = err.Error()
			}
			return 0, fmt.Errorf("daemon exited during startup: %s (log: %s)", msg, logPath)
		case <-tick.C:
			if st, _ := Status(ctx, opts.Home); st.Running {
				return st.PID, nil
			}
		case <-deadline.C:
			// Slow store or model probe; report the child and let status catch up.
			return cmd.Process.Pid, nil
		}
	}
}

// startupWait bounds how long serve waits for the detached daemon.
const startupWait = 5 * time.Second

// lastLogLine returns the final non-empty line of the daemon log, where a
// failed start leaves its error.
func lastLogLine(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func backgroundArgs(opts StartOptions) []string {
	// The detached process only has the log file, so keep it machine readable.
	args := []string{"daemon", "--home", opts.Home, "--log-format", "json"}
	if opts.Port != 0 {
		args = append(args, "--port", strconv.Itoa(opts.Port))
	}
	if opts.Dev {
		args = append(args, "--dev")
	}
	if opts.PprofAddr != "" {
		args = append(args, "--pprof", opts.PprofAddr)
	}
	if opts.EnableOtel {
		args = append(args, "--otel")
	}
	return args
}

// Stop sends SIGTERM to the running daemon and waits up to timeout for it
// to exit, then kills it. A zero timeout waits 15s. Without a daemon the
// result has Stopped false and no error.
func Stop(ctx context.Context, home string, timeout time.Duration) (StopResult, error) {
	st, err := Status(ctx, home)
	if err != nil || !st.Running {
		return StopResult{}, err
	}
	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return StopResult{}, errNotRunning
	}
	if err := signalTerm(proc); err != nil {
		return StopResult{}, fmt.Errorf("signal pid %d: %w", st.PID, err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	res := StopResult{Stopped: true, PID: st.PID}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if now, _ := Status(ctx, home); !now.Running {
				return res, nil
			}
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Forced = true
			return res, proc.Kill()
		}
	}
}

// Status reads the PID file and checks that the process is alive. A stale PID
// file is removed.
func Status(ctx context.Context, home string) (StatusInfo, error) {
	pb, err := os.ReadFile(pidPath(home))
	if err != nil {
		return StatusInfo{Running: false}, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pb)))
	if err != nil || pid <= 0 {
		return StatusInfo{Running: false}, nil
	}

	if !processExists(pid) {
		_ = os.Remove(pidPath(home))
		return StatusInfo{Running: false}, nil
	}

	addr := ""
	if ab, err := os.ReadFile(addrPath(home)); err == nil {
		addr = strings.TrimSpace(string(ab))
	}
	if addr == "" {
		addr = "unknown"
	}
	return StatusInfo{Running: true, PID: pid, Addr: addr}, nil
}

func checkPortAvailable(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return fmt.Errorf("port %d is already in use", port)
	}
	_ = ln.Close()
	return nil
}

// taskCounter feeds the taskagent_tasks gauges from the store at scrape time.
func taskCounter(st store.Store) otel.TaskCounter {
	return func(ctx context.Context) (otel.TaskCounts, bool) {
		tasks, err := st.ListTasks(ctx)
		if err != nil {
			return otel.TaskCounts{}, false
		}
		var c otel.TaskCounts
		today := agent.Today(time.Now())
		for _, t := range tasks {
			switch {
			case t.Completed:
				c.Completed++
			case agent.IsOverdue(t, today):
				c.Overdue++
				c.Pending++
			default:
				c.Pending++
			}
		}
		return c, true
	}
}
