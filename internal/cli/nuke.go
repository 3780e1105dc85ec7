package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asad-creats/taskagent/internal/config"
	"github.com/asad-creats/taskagent/internal/daemon"
	"github.com/asad-creats/taskagent/internal/store"
)

const nukePhrase = "delete everything"

func newNukeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "nuke",
		Short: "Delete the local task database, config and logs under the home directory",
		Long: "Removes TASKAGENT_HOME entirely. Tasks kept in postgres, rest or Google Tasks " +
			"stores are not touched; only the local SQLite database is.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			out := cmd.OutOrStdout()
			if _, err := os.Stat(home); errors.Is(err, fs.ErrNotExist) {
				_, _ = fmt.Fprintf(out, "Nothing to delete at %s\n", home)
				return nil
			}
			if st, _ := daemon.Status(cmd.Context(), home); st.Running {
				return fmt.Errorf("taskagent is running (pid %d); run `taskagent stop` first", st.PID)
			}

			if !yes {
				_, _ = fmt.Fprintln(out, warnStyle.Render("This permanently deletes:"))
				for _, p := range []string{store.DBPath(home), config.Path(home), daemon.LogPath(home)} {
					if size, ok := fileSize(p); ok {
						_, _ = fmt.Fprintf(out, "  %s (%s)\n", p, size)
					}
				}
				_, _ = fmt.Fprintf(out, "and everything else under %s\n", home)
				_, _ = fmt.Fprintf(out, "Type %q to confirm: ", nukePhrase)
				ok, err := confirm(cmd.InOrStdin(), nukePhrase)
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			if err := os.RemoveAll(home); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, okStyle.Render("Deleted "+filepath.Clean(home)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return cmd
}

// confirm reads one line and reports whether it equals phrase.
func confirm(r io.Reader, phrase string) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.TrimSpace(line) == phrase, nil
}

func fileSize(path string) (string, bool) {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return "", false
	}
	n := fi.Size()
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20)), true
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10)), true
	default:
		return fmt.Sprintf("%d B", n), true
	}
}
