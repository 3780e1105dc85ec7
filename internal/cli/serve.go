package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/daemon"
)

func newServeCmd() *cobra.Command {
	var (
		opts       daemon.StartOptions
		foreground bool
		envFile    string
		noBrowser  bool
	)
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the daemon serving the web UI, REST API and chat",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if envFile != "" {
				// Values in the file win over the shell, then re-apply on top of config.yaml.
				if err := godotenv.Overload(envFile); err != nil {
					return fmt.Errorf("env file %s: %w", envFile, err)
				}
				cfg.ApplyEnv()
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			opts.Home = config.MustHomeFrom(cmd.Context())
			opts.Config = cfg
			if opts.Port == 0 {
				opts.Port = cfg.Server.Port
			}
			if opts.Port == 0 {
				opts.Port = daemon.DefaultPort
			}
			uiURL := fmt.Sprintf("http://localhost:%d", opts.Port)
			out := cmd.OutOrStdout()

			if foreground {
				_, _ = fmt.Fprintf(out, "Serving %s (Ctrl+C to stop)\n", uiURL)
				err := daemon.StartForeground(cmd.Context(), opts)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			pid, err := daemon.StartBackground(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("taskagent started (pid %d)", pid)))
			_, _ = fmt.Fprintf(out, "UI:  %s\nLog: %s\n", uiURL, daemon.LogPath(opts.Home))
			if !noBrowser {
				openUI(uiURL)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Port, "port", 0, "Port for the web UI and API (default: server.port from config, 4280)")
	f.BoolVar(&foreground, "foreground", false, "Run in this process instead of detaching")
	f.BoolVar(&opts.Dev, "dev", false, "Allow cross-origin requests from a dev server")
	f.StringVar(&opts.PprofAddr, "pprof", "", "Serve pprof on this address (e.g. 127.0.0.1:6060)")
	f.BoolVar(&opts.EnableOtel, "otel", false, "Export OpenTelemetry metrics on /metrics")
	f.StringVar(&envFile, "env-file", "", "Load KEY=VALUE pairs from this .env file before starting")
	f.BoolVar(&noBrowser, "no-browser", false, "Do not open the UI in a browser")
	return cmd
}

// openUI opens the page if a browser is available; headless hosts are fine.
func openUI(url string) {
	browser.Stdout, browser.Stderr = io.Discard, io.Discard
	_ = browser.OpenURL(url)
}
