package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/KDE/macaw-movies/internal/backup"
	"github.com/KDE/macaw-movies/internal/logging"
	"github.com/KDE/macaw-movies/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Options tunes how a store is opened. The zero value is usable.
type Options struct {
	// BusyTimeout is how long SQLite waits on a locked file. Defaults to 5s.
	BusyTimeout time.Duration
	// Migrations replaces the built-in upgrade steps. Nil means DefaultMigrations().
	Migrations []Migration
}

// Database owns the single connection to the library store.
type Database struct {
	db       *sql.DB
	dbPath   string
	opts     Options
	backups  *backup.Manager
	migrator *Migrator
	mu       sync.RWMutex
}

// Open opens the store at dbPath, creating the file when absent, and brings
// its schema up to date before returning. Only the parent directory has to
// exist.
func Open(ctx context.Context, dbPath string, opts *Options) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	d := &Database{
		dbPath:  dbPath,
		backups: backup.NewManager(dbPath),
	}
	if opts != nil {
		d.opts = *opts
	}
	if d.opts.BusyTimeout <= 0 {
		d.opts.BusyTimeout = 5 * time.Second
	}
	if d.opts.Migrations == nil {
		d.opts.Migrations = DefaultMigrations()
	}
	d.migrator = newMigrator(d, d.opts.Migrations)

	if err := d.open(ctx); err != nil {
		return nil, err
	}

	if err := d.migrator.Run(ctx); err != nil {
		if closeErr := d.Close(); closeErr != nil {
			logging.Error("failed to close database after migration failure: %v", closeErr)
		}
		return nil, err
	}

	logging.Info("Database ready at %s (schema v%d)", dbPath, d.migrator.Target())
	return d, nil
}

// open establishes the connection without touching the schema.
func (d *Database) open(ctx context.Context) error {
	// The default rollback journal is kept so a plain file copy is a
	// consistent snapshot between statements.
	connStr := fmt.Sprintf("%s?_foreign_keys=1&_busy_timeout=%d",
		d.dbPath, d.opts.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	// One connection for the whole process; PRAGMA settings are per
	// connection and must survive between calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// Ping alone does not read the file, so a corrupt store only shows up
	// on the first real query.
	var n int
	err = db.PingContext(pingCtx)
	if err == nil {
		err = db.QueryRowContext(pingCtx, "SELECT COUNT(*) FROM sqlite_master").Scan(&n)
	}
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after open failure: %v", closeErr)
		}
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, d.dbPath, err)
	}

	d.mu.Lock()
	d.db = db
	d.mu.Unlock()
	return nil
}

// Close releases the connection. Calling it again is a no-op.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Delete closes the store and removes its file together with any SQLite
// sidecar files. Backups are left in place.
func (d *Database) Delete() error {
	if err := d.Close(); err != nil {
		logging.Warn("Error closing database before delete: %v", err)
	}

	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		if err := os.Remove(d.dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", d.dbPath+suffix, err)
		}
	}
	logging.Info("Database file %s deleted", d.dbPath)
	return nil
}

// Reopen opens the store again after Close or Delete and migrates it. A
// deleted store is recreated empty.
func (d *Database) Reopen(ctx context.Context) error {
	if err := d.Close(); err != nil {
		logging.Warn("Error closing database before reopen: %v", err)
	}
	if err := d.open(ctx); err != nil {
		return err
	}
	return d.migrator.Run(ctx)
}

// Migrate brings the schema up to date. Open already does this; calling it
// again on an up to date store is a no-op.
func (d *Database) Migrate(ctx context.Context) error {
	return d.migrator.Run(ctx)
}

// State returns the migration state machine's current state.
func (d *Database) State() string {
	return d.migrator.State()
}

// Backups returns the snapshot manager of this store.
func (d *Database) Backups() *backup.Manager {
	return d.backups
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// conn returns the live handle or ErrClosed.
func (d *Database) conn() (*sql.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, ErrClosed
	}
	return d.db, nil
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (d *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}

// observeQuery starts timing a query and returns the function that records
// its outcome.
func observeQuery(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		recordQuery(operation, start, err)
	}
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
		logging.Error("database %s failed: %v", operation, err)
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// closeRows closes a result set, logging the error if any.
func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Error("error closing rows: %v", err)
	}
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	if dbInfo, err := os.Stat(dbPath); err == nil {
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", dbPath, dbInfo.Mode(), dbInfo.Size())
		if dbInfo.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file is read-only! Mode: %v", dbInfo.Mode())
		}
	}

	journal := dbPath + "-journal"
	if info, err := os.Stat(journal); err == nil {
		logging.Warn("Hot journal found: %s (%d bytes); SQLite will roll it back on open", journal, info.Size())
	}
	return nil
}
