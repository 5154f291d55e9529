package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KDE/macaw-movies/internal/database"
	"github.com/KDE/macaw-movies/internal/logging"
	"github.com/KDE/macaw-movies/internal/startup"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	configDir  string
	jsonOutput bool

	v   *viper.Viper
	cfg *startup.Config
	db  *database.Database
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the macaw command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "macaw",
		Short: "Macaw movie library store",
		Long: `Macaw manages the SQLite store of a Macaw-Movies library: it creates
and migrates the schema, registers watch paths, imports the video files
found under them and serves the library over HTTP.

Configuration is read from config.yaml in the configuration directory and
from MACAW_* environment variables; flags take precedence over both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/macaw-movies)")
	flags.String("data-dir", "", "data directory holding the database and posters")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		newVersionCmd(),
		newStatusCmd(a),
		newMigrateCmd(a),
		newPathsCmd(a),
		newScanCmd(a),
		newMoviesCmd(a),
		newTagsCmd(a),
		newPlaylistsCmd(a),
		newPlayerCmd(a),
		newBackupCmd(a),
		newResetCmd(a),
		newServeCmd(a),
	)
	return root
}

// load resolves the configuration, binding the root's persistent flags.
func (a *app) load(cmd *cobra.Command) error {
	if a.cfg != nil {
		return nil
	}

	v, err := startup.NewViper(a.configDir)
	if err != nil {
		return err
	}
	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		startup.KeyDataDir:  "data-dir",
		startup.KeyLogLevel: "log-level",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := startup.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	a.v = v
	a.cfg = cfg
	return nil
}

// open loads the configuration and opens the store, migrating it.
func (a *app) open(cmd *cobra.Command) (*database.Database, error) {
	if a.db != nil {
		return a.db, nil
	}
	if err := a.load(cmd); err != nil {
		return nil, err
	}
	db, err := database.Open(cmd.Context(), a.cfg.DatabasePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	return db, nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// withDB adapts a command body that needs the open store, closing it
// afterwards.
func (a *app) withDB(fn func(cmd *cobra.Command, db *database.Database, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := a.open(cmd)
		if err != nil {
			return err
		}
		return errors.Join(fn(cmd, db, args), a.close())
	}
}

// emit prints v as indented JSON when --json is set, otherwise calls text.
func (a *app) emit(w io.Writer, v any, text func(io.Writer) error) error {
	if !a.jsonOutput {
		return text(w)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
