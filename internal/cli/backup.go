package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KDE/macaw-movies/internal/backup"
	"github.com/KDE/macaw-movies/internal/database"
)

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage database snapshots",
		Long: `Snapshots are full copies of the database file kept beside it. One is
taken before every schema upgrade; more can be taken on demand.`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, oldest first",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			records, err := db.Backups().List()
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), records, func(w io.Writer) error {
				return table(w, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "SEQ\tCREATED\tSCHEMA\tSIZE\tFILE")
					for _, r := range records {
						fmt.Fprintf(tw, "%d\t%s\tv%d\t%d\t%s\n",
							r.Seq, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.SchemaVersion, r.Size, r.File)
					}
				})
			})
		}),
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Take a snapshot of the database now",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			version, err := db.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := db.Backups().Create(version)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), rec, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Snapshot %d written to %s\n", rec.Seq, db.Backups().Path(rec))
				return err
			})
		}),
	}

	restore := &cobra.Command{
		Use:   "restore <seq>",
		Short: "Replace the database with a snapshot",
		Long: `Restore closes the database, copies the snapshot over it after verifying
its checksum, then opens it again. A snapshot of an older schema is
upgraded on open.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			seq, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid snapshot %q", args[0])
			}
			rec, err := findRecord(db.Backups(), seq)
			if err != nil {
				return err
			}
			if err := db.Close(); err != nil {
				return err
			}
			if err := db.Backups().Restore(rec); err != nil {
				return err
			}
			if err := db.Reopen(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored snapshot %d (schema v%d)\n", rec.Seq, rec.SchemaVersion)
			return nil
		}),
	}

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.BackupKeep
			}
			if keep < 0 {
				return fmt.Errorf("invalid --keep %d", keep)
			}
			removed, err := db.Backups().Prune(keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshots, kept at most %d\n", removed, keep)
			return nil
		}),
	}
	prune.Flags().IntVar(&keep, "keep", 0, "snapshots to keep (default: backup_keep setting)")

	cmd.AddCommand(list, create, restore, prune)
	return cmd
}

func findRecord(m *backup.Manager, seq int64) (backup.Record, error) {
	records, err := m.List()
	if err != nil {
		return backup.Record{}, err
	}
	for _, r := range records {
		if r.Seq == seq {
			return r, nil
		}
	}
	return backup.Record{}, fmt.Errorf("snapshot %d: %w", seq, backup.ErrNoBackup)
}
