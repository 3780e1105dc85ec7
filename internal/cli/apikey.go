package cli

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/config"
)

// apiKeyPrefix makes keys recognizable in env files and secret scanners.
const apiKeyPrefix = "tka_"

func newApikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the key that guards the HTTP API when it is reachable over a network",
	}
	cmd.AddCommand(newApikeyGenerateCmd(), newApikeyShowCmd())
	return cmd
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

func newApikeyGenerateCmd() *cobra.Command {
	var (
		envFile string
		save    bool
		quiet   bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a random API key, optionally storing it in the config or an env file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := generateAPIKey()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if quiet {
				_, _ = fmt.Fprintln(out, key)
			} else {
				_, _ = fmt.Fprintf(out, "%s\n\n  %s\n\n", titleStyle.Render("New API key (shown once):"), key)
			}

			if save {
				path := configFile(cmd)
				cfg, err := config.ReadFile(path)
				if err != nil {
					return err
				}
				replaced := cfg.Server.APIKey != ""
				cfg.Server.APIKey = key
				if err := config.Save(path, cfg); err != nil {
					return err
				}
				if !quiet {
					msg := "Saved as server.api_key in " + path
					if replaced {
						msg += " (previous key replaced)"
					}
					_, _ = fmt.Fprintln(out, okStyle.Render(msg))
					_, _ = fmt.Fprintln(out, "Restart the daemon to apply it: taskagent stop && taskagent serve")
				}
			}
			if envFile != "" {
				if err := appendEnv(envFile, "TASKAGENT_API_KEY", key); err != nil {
					return err
				}
				if !quiet {
					_, _ = fmt.Fprintf(out, "Appended TASKAGENT_API_KEY to %s\n", envFile)
					_, _ = fmt.Fprintln(out, "Start the server with: taskagent serve --foreground --env-file "+envFile)
				}
			}
			if !save && envFile == "" && !quiet {
				_, _ = fmt.Fprintln(out, "Server: export TASKAGENT_API_KEY=<key>, or rerun with --save")
				_, _ = fmt.Fprintln(out, "Clients: send the X-API-Key header or the api_key query parameter")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env", "", "Append TASKAGENT_API_KEY to this file (e.g. .env)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the key in the config file as server.api_key")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the key")
	return cmd
}

func newApikeyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Report whether an API key is configured and where it comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			key := config.FromContext(cmd.Context()).Server.APIKey
			switch {
			case key == "":
				_, _ = fmt.Fprintln(out, warnStyle.Render("No API key set; the API accepts any caller"))
			case os.Getenv("TASKAGENT_API_KEY") != "":
				_, _ = fmt.Fprintf(out, "API key %s from TASKAGENT_API_KEY\n", maskKey(key))
			default:
				_, _ = fmt.Fprintf(out, "API key %s from %s\n", maskKey(key), configFile(cmd))
			}
			return nil
		},
	}
}

// maskKey keeps the prefix and last four characters.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	head := ""
	if strings.HasPrefix(key, apiKeyPrefix) {
		head = apiKeyPrefix
	}
	return head + "****" + key[len(key)-4:]
}

func appendEnv(path, key, value string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
