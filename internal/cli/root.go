package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	var (
		homeOverride string
		configPath   string
		logLevel     string
		logFormat    string
	)

	cmd := &cobra.Command{
		Use:          "taskagent",
		Short:        "taskagent: a task manager you can talk to, backed by a local or cloud model",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			if configPath == "" {
				configPath = config.Path(home)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel == "" {
				logLevel = os.Getenv("TASKAGENT_LOG_LEVEL")
			}
			logger, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx := config.WithHome(cmd.Context(), home)
			ctx = config.WithConfig(ctx, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override taskagent home directory (default: ~/.taskagent, env: TASKAGENT_HOME)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <home>/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env: TASKAGENT_LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())

	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newApikeyCmd())
	cmd.AddCommand(newNukeCmd())

	// Hidden internal subcommand used by `taskagent serve` for background mode.
	cmd.AddCommand(newDaemonCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "", "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}
