package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/store"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect <home>/config.yaml",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force    bool
		provider string
		driver   string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile(cmd)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := config.Default()
			if provider != "" {
				cfg.LLM.Provider = provider
			}
			if driver != "" {
				cfg.Store.Driver = driver
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			if cfg.Store.Driver == config.DriverSQLite && cfg.Store.DSN == "" {
				home := config.MustHomeFrom(cmd.Context())
				if err := store.EnsureSchema(home); err != nil {
					return fmt.Errorf("create task database: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task database ready at %s\n", store.DBPath(home))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&provider, "provider", "", "Model provider: auto, ollama, gemini, openai")
	cmd.Flags().StringVar(&driver, "store", "", "Store driver: sqlite, postgres, rest, googletasks, memory")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config (file plus env overrides, secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	return cmd
}

// configFile is --config when given, else <home>/config.yaml.
func configFile(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return config.Path(config.MustHomeFrom(cmd.Context()))
}
