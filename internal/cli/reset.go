package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/KDE/macaw-movies/internal/database"
)

var errNotConfirmed = errors.New("reset not confirmed")

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the library and start from an empty database",
		Long: `Reset deletes the database file and creates an empty store at the current
schema version. Snapshots and the poster cache are left in place.

Without --yes, reset asks for confirmation and refuses to run when standard
input is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			if !yes {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("refusing to reset without a terminal: pass --yes")
				}
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), db.Path())
				if err != nil {
					return err
				}
				if !ok {
					return errNotConfirmed
				}
			}

			if err := db.Delete(); err != nil {
				return err
			}
			if err := db.Reopen(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s reset (schema v%d)\n", db.Path(), database.CurrentVersion)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "do not ask for confirmation")
	return cmd
}

// confirm asks the user to type "reset".
func confirm(in io.Reader, out io.Writer, path string) (bool, error) {
	fmt.Fprintf(out, "This deletes every movie, tag and playlist in %s.\nType \"reset\" to continue: ", path)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	return strings.TrimSpace(line) == "reset", nil
}
