package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/looplab/fsm"

	"github.com/KDE/macaw-movies/internal/backup"
	"github.com/KDE/macaw-movies/internal/logging"
	"github.com/KDE/macaw-movies/internal/metrics"
)

// Migration states.
const (
	StateUninitialized = "uninitialized"
	StateUpgrading     = "upgrading"
	StateUpgraded      = "upgraded"
	StateRolledBack    = "rolled_back"
)

const (
	eventCreate   = "create"
	eventVerify   = "verify"
	eventUpgrade  = "upgrade"
	eventComplete = "complete"
	eventFail     = "fail"
	eventReset    = "reset"
)

// Step is one schema change. Steps must be idempotent: they inspect the live
// schema and skip work that is already done. They run on a connection with
// foreign key enforcement turned off.
type Step struct {
	Name string
	Run  func(ctx context.Context, conn *sql.Conn) error
}

// Migration groups the steps that take the schema to Version.
type Migration struct {
	Version int
	Steps   []Step
}

// Migrator drives the schema from the installed version to the target
// version, restoring a pre-upgrade snapshot when any step fails.
type Migrator struct {
	d          *Database
	migrations []Migration
	target     int
	fsm        *fsm.FSM
}

func newMigrator(d *Database, migrations []Migration) *Migrator {
	sorted := slices.Clone(migrations)
	slices.SortStableFunc(sorted, func(a, b Migration) int { return a.Version - b.Version })

	target := CurrentVersion
	if n := len(sorted); n > 0 && sorted[n-1].Version > target {
		target = sorted[n-1].Version
	}

	m := &Migrator{
		d:          d,
		migrations: sorted,
		target:     target,
	}

	m.fsm = fsm.NewFSM(
		StateUninitialized,
		fsm.Events{
			{Name: eventCreate, Src: []string{StateUninitialized, StateRolledBack}, Dst: StateUpgraded},
			{Name: eventVerify, Src: []string{StateUninitialized, StateRolledBack}, Dst: StateUpgraded},
			{Name: eventUpgrade, Src: []string{StateUninitialized, StateRolledBack}, Dst: StateUpgrading},
			{Name: eventComplete, Src: []string{StateUpgrading}, Dst: StateUpgraded},
			{Name: eventFail, Src: []string{StateUpgrading}, Dst: StateRolledBack},
			{Name: eventReset, Src: []string{StateUpgraded}, Dst: StateUninitialized},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				logging.Debug("Schema migration: %s -> %s (%s)", e.Src, e.Dst, e.Event)
			},
		},
	)
	return m
}

// State returns the current migration state.
func (m *Migrator) State() string {
	return m.fsm.Current()
}

// Target returns the schema version the migrator upgrades to.
func (m *Migrator) Target() int {
	return m.target
}

func (m *Migrator) event(ctx context.Context, name string) {
	if err := m.fsm.Event(ctx, name); err != nil {
		logging.Warn("Schema migration: event %s rejected in state %s: %v", name, m.fsm.Current(), err)
	}
}

// Run checks the installed version and creates or upgrades the schema. It
// ignores cancellation of ctx: a started batch always finishes or rolls back.
func (m *Migrator) Run(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	if m.fsm.Is(StateUpgraded) {
		m.event(ctx, eventReset)
	}

	db, err := m.d.conn()
	if err != nil {
		return err
	}

	installed, ok, err := readVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	if !ok {
		done := observeQuery("create_all")
		err := m.d.withTx(ctx, func(tx *sql.Tx) error { return createAll(ctx, tx) })
		done(err)
		if err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		logging.Info("Created new database schema v%d", CurrentVersion)
		installed = CurrentVersion

		if installed >= m.target {
			m.event(ctx, eventCreate)
			metrics.SchemaVersion.Set(float64(installed))
			return nil
		}
	}

	switch {
	case installed > m.target:
		return fmt.Errorf("%w: found v%d, this release supports up to v%d", ErrSchemaTooNew, installed, m.target)
	case installed == m.target:
		m.event(ctx, eventVerify)
		metrics.SchemaVersion.Set(float64(installed))
		logging.Debug("Database schema is up to date (v%d)", installed)
		return nil
	}

	return m.upgrade(ctx, installed)
}

// pending returns the migrations newer than from, in version order.
func (m *Migrator) pending(from int) []Migration {
	var out []Migration
	for _, mig := range m.migrations {
		if mig.Version > from && mig.Version <= m.target {
			out = append(out, mig)
		}
	}
	return out
}

func (m *Migrator) upgrade(ctx context.Context, from int) error {
	start := time.Now()
	pending := m.pending(from)

	m.event(ctx, eventUpgrade)
	logging.Info("Upgrading database schema from v%d to v%d (%d migrations)", from, m.target, len(pending))

	rec, err := m.d.backups.Create(from)
	if err != nil {
		m.event(ctx, eventFail)
		metrics.MigrationsTotal.WithLabelValues("rolled_back").Inc()
		return fmt.Errorf("%w: backup before upgrade failed: %w", ErrMigrationFailed, err)
	}

	db, err := m.d.conn()
	if err != nil {
		m.event(ctx, eventFail)
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		m.event(ctx, eventFail)
		metrics.MigrationsTotal.WithLabelValues("rolled_back").Inc()
		return fmt.Errorf("%w: failed to acquire connection: %w", ErrMigrationFailed, err)
	}

	batchErr := m.runBatch(ctx, conn, from, pending)
	if closeErr := conn.Close(); closeErr != nil {
		logging.Warn("Error releasing migration connection: %v", closeErr)
	}
	metrics.MigrationDuration.Observe(time.Since(start).Seconds())

	if batchErr != nil {
		m.event(ctx, eventFail)
		return m.rollback(ctx, rec, batchErr)
	}

	m.event(ctx, eventComplete)
	metrics.MigrationsTotal.WithLabelValues("success").Inc()
	metrics.SchemaVersion.Set(float64(m.target))
	logging.Info("Database schema upgraded to v%d in %v (backup #%d kept at %s)",
		m.target, time.Since(start).Round(time.Millisecond), rec.Seq, rec.File)
	return nil
}

// runBatch executes every pending step with foreign keys off, stopping at
// the first failure.
func (m *Migrator) runBatch(ctx context.Context, conn *sql.Conn, from int, pending []Migration) error {
	// PRAGMA foreign_keys has no effect inside a transaction, so the batch
	// runs in autocommit mode and relies on the snapshot for atomicity.
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return &StepError{Version: from, Step: "disable foreign keys", Err: err}
	}

	for _, mig := range pending {
		version := strconv.Itoa(mig.Version)
		for _, step := range mig.Steps {
			logging.Info("Migration v%d: %s", mig.Version, step.Name)
			if err := step.Run(ctx, conn); err != nil {
				metrics.MigrationStepsTotal.WithLabelValues(version, "error").Inc()
				logging.Error("Migration v%d step %q failed: %v", mig.Version, step.Name, err)
				return &StepError{Version: mig.Version, Step: step.Name, Err: err}
			}
			metrics.MigrationStepsTotal.WithLabelValues(version, "success").Inc()
		}
	}

	if err := writeVersion(ctx, conn, m.target); err != nil {
		return &StepError{Version: m.target, Step: "record schema version", Err: err}
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return &StepError{Version: m.target, Step: "enable foreign keys", Err: err}
	}

	violations, err := foreignKeyViolations(ctx, conn)
	if err != nil {
		logging.Warn("Foreign key check after upgrade failed: %v", err)
	} else if violations > 0 {
		logging.Warn("Upgraded schema has %d rows with dangling references", violations)
	}
	return nil
}

// writeVersion stores version in the configuration row, creating the row
// when an older store lost it.
func writeVersion(ctx context.Context, conn *sql.Conn, version int) error {
	if _, err := conn.ExecContext(ctx, "UPDATE config SET db_version = ?", version); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx,
		"INSERT INTO config (db_version) SELECT ? WHERE NOT EXISTS (SELECT 1 FROM config)", version)
	return err
}

// rollback puts the pre-upgrade snapshot back in place and reopens the
// store. cause is always part of the returned error.
func (m *Migrator) rollback(ctx context.Context, rec backup.Record, cause error) error {
	logging.Warn("Schema upgrade failed, restoring backup #%d (%s)", rec.Seq, rec.File)

	if err := m.d.Close(); err != nil {
		logging.Warn("Error closing database before restore: %v", err)
	}

	if err := m.d.backups.Restore(rec); err != nil {
		metrics.MigrationsTotal.WithLabelValues("restore_failed").Inc()
		logging.Error("Restoring backup #%d failed: %v", rec.Seq, err)
		return errors.Join(cause, fmt.Errorf("restore of backup #%d failed: %w", rec.Seq, err))
	}

	metrics.MigrationsTotal.WithLabelValues("rolled_back").Inc()
	if err := m.d.open(ctx); err != nil {
		return errors.Join(cause, err)
	}
	metrics.SchemaVersion.Set(float64(rec.SchemaVersion))
	logging.Info("Database restored to schema v%d", rec.SchemaVersion)
	return cause
}

func foreignKeyViolations(ctx context.Context, q querier) (int, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return 0, err
	}
	defer closeRows(rows)

	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}
