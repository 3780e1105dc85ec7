package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/backend"
	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/llm"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models the configured backend can serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			c, err := backend.NewClient(cmd.Context(), cfg, slog.Default())
			if err != nil {
				return err
			}
			provider, current, hint := llm.Describe(c)
			out := cmd.OutOrStdout()
			models := c.ListModels(cmd.Context())
			if len(models) == 0 {
				_, _ = fmt.Fprintf(out, "No models available from %s. %s\n", provider, hint)
				return nil
			}
			_, _ = fmt.Fprintln(out, titleStyle.Render(provider))
			for _, m := range models {
				mark := " "
				if m.Name == current {
					mark = okStyle.Render("*")
				}
				line := fmt.Sprintf("%s %s", mark, m.Name)
				if m.Size > 0 {
					line += mutedStyle.Render(fmt.Sprintf("  %.1f GB", float64(m.Size)/(1<<30)))
				}
				_, _ = fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	return cmd
}
