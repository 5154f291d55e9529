package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KDE/macaw-movies/internal/database"
)

type statusReport struct {
	Database       string `json:"database"`
	SchemaVersion  int    `json:"schemaVersion"`
	CurrentVersion int    `json:"currentVersion"`
	MigrationState string `json:"migrationState"`
	Backups        int    `json:"backups"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the database schema version and migration state",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			return a.printStatus(cmd, db)
		}),
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `Migrate brings the database to the schema version of this release. A
snapshot of the store is taken before each upgrade and restored when a step
fails. Running it on an up to date store changes nothing.`,
		Args: cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			return a.printStatus(cmd, db)
		}),
	}
}

func (a *app) printStatus(cmd *cobra.Command, db *database.Database) error {
	version, err := db.SchemaVersion(cmd.Context())
	if err != nil {
		return err
	}
	records, err := db.Backups().List()
	if err != nil {
		return err
	}

	report := statusReport{
		Database:       db.Path(),
		SchemaVersion:  version,
		CurrentVersion: database.CurrentVersion,
		MigrationState: db.State(),
		Backups:        len(records),
	}
	return a.emit(cmd.OutOrStdout(), report, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Database:  %s\nSchema:    v%d (current v%d)\nState:     %s\nBackups:   %d\n",
			report.Database, report.SchemaVersion, report.CurrentVersion, report.MigrationState, report.Backups)
		return err
	})
}
