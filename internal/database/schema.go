package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CurrentVersion is the schema version written by this release.
const CurrentVersion = 50

const (
	// ToWatchPlaylistID is the reserved identity of the default playlist.
	ToWatchPlaylistID int64 = 1
	// ToWatchPlaylistName is the name the default playlist is created with.
	ToWatchPlaylistName = "To Watch"
)

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type tableDef struct {
	name string
	ddl  string
}

// moviesDDL returns the movies table definition under the given name so the
// same shape is used for fresh stores and for table rebuilds.
func moviesDDL(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		title VARCHAR(255) NOT NULL,
		original_title VARCHAR(255),
		release_date VARCHAR(10),
		country VARCHAR(50),
		duration INTEGER,
		synopsis TEXT,
		id_path INTEGER NOT NULL,
		file_path VARCHAR(255) NOT NULL,
		poster_path VARCHAR(255),
		colored BOOLEAN,
		format VARCHAR(10),
		suffix VARCHAR(10),
		rank INTEGER,
		imported BOOLEAN,
		id_tmdb INTEGER,
		show BOOLEAN,
		UNIQUE (id_path, file_path) ON CONFLICT IGNORE
	)`, name)
}

const (
	peopleDDL = `CREATE TABLE IF NOT EXISTS people (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		name VARCHAR(200) NOT NULL,
		birthday VARCHAR(10),
		biography TEXT,
		imported BOOLEAN,
		id_tmdb INTEGER
	)`

	moviesPeopleDDL = `CREATE TABLE IF NOT EXISTS movies_people (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		id_movie INTEGER NOT NULL,
		id_people INTEGER NOT NULL,
		type INTEGER NOT NULL,
		UNIQUE (id_people, id_movie, type) ON CONFLICT IGNORE,
		FOREIGN KEY(id_movie) REFERENCES movies ON DELETE CASCADE,
		FOREIGN KEY(id_people) REFERENCES people ON DELETE CASCADE
	)`

	playlistsDDL = `CREATE TABLE IF NOT EXISTS playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		name VARCHAR(255) UNIQUE NOT NULL,
		rate INTEGER,
		creation_date INT
	)`

	moviesPlaylistsDDL = `CREATE TABLE IF NOT EXISTS movies_playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		id_movie INTEGER NOT NULL,
		id_playlist INTEGER NOT NULL,
		UNIQUE (id_playlist, id_movie) ON CONFLICT IGNORE,
		FOREIGN KEY(id_movie) REFERENCES movies ON DELETE CASCADE,
		FOREIGN KEY(id_playlist) REFERENCES playlists ON DELETE CASCADE
	)`

	tagsDDL = `CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		name VARCHAR(255) UNIQUE NOT NULL
	)`

	moviesTagsDDL = `CREATE TABLE IF NOT EXISTS movies_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		id_movie INTEGER NOT NULL,
		id_tag INTEGER NOT NULL,
		UNIQUE (id_tag, id_movie) ON CONFLICT IGNORE,
		FOREIGN KEY(id_movie) REFERENCES movies ON DELETE CASCADE,
		FOREIGN KEY(id_tag) REFERENCES tags ON DELETE CASCADE
	)`

	showDDL = `CREATE TABLE IF NOT EXISTS show (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		name VARCHAR(255),
		finished BOOLEAN
	)`

	episodesDDL = `CREATE TABLE IF NOT EXISTS episodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		number INTEGER,
		season INTEGER,
		id_show INTEGER NOT NULL,
		id_movie INTEGER UNIQUE NOT NULL,
		FOREIGN KEY(id_movie) REFERENCES movies ON DELETE CASCADE,
		FOREIGN KEY(id_show) REFERENCES show ON DELETE CASCADE
	)`

	pathListDDL = `CREATE TABLE IF NOT EXISTS path_list (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		movies_path VARCHAR(255) UNIQUE,
		type INTEGER,
		imported BOOLEAN DEFAULT 0
	)`

	configDDL = `CREATE TABLE IF NOT EXISTS config (
		db_version INTEGER,
		media_player VARCHAR(255)
	)`
)

// catalog lists every table in creation order. Tables referenced by foreign
// keys come before the tables referencing them.
var catalog = []tableDef{
	{name: "movies", ddl: moviesDDL("movies")},
	{name: "people", ddl: peopleDDL},
	{name: "movies_people", ddl: moviesPeopleDDL},
	{name: "playlists", ddl: playlistsDDL},
	{name: "movies_playlists", ddl: moviesPlaylistsDDL},
	{name: "tags", ddl: tagsDDL},
	{name: "movies_tags", ddl: moviesTagsDDL},
	{name: "show", ddl: showDDL},
	{name: "episodes", ddl: episodesDDL},
	{name: "path_list", ddl: pathListDDL},
	{name: "config", ddl: configDDL},
}

// Tables returns the names of all tables in the current schema.
func Tables() []string {
	names := make([]string, len(catalog))
	for i, t := range catalog {
		names[i] = t.name
	}
	return names
}

// createAll creates every table at the current version, the default
// playlist and the configuration row. Safe to run on an initialized store.
func createAll(ctx context.Context, q querier) error {
	for _, t := range catalog {
		if _, err := q.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
	}

	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO playlists (id, name, rate, creation_date) VALUES (?, ?, 0, 0)`,
		ToWatchPlaylistID, ToWatchPlaylistName); err != nil {
		return fmt.Errorf("failed to create default playlist: %w", err)
	}

	if _, err := q.ExecContext(ctx,
		`INSERT INTO config (db_version) SELECT ? WHERE NOT EXISTS (SELECT 1 FROM config)`,
		CurrentVersion); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	return nil
}

func tableExists(ctx context.Context, q querier, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", name, err)
	}
	return n > 0, nil
}

func columnExists(ctx context.Context, q querier, table, column string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

// addColumn adds a column unless the live table already has it and reports
// whether the column was added.
func addColumn(ctx context.Context, q querier, table, column, decl string) (bool, error) {
	exists, err := columnExists(ctx, q, table, column)
	if err != nil || exists {
		return false, err
	}
	if _, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return false, fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return true, nil
}

// readVersion returns the installed schema version, or 0 with ok=false when
// the store has no configuration table yet. A configuration table without
// its row reads as version 0 so the full upgrade runs over whatever tables
// the store already holds.
func readVersion(ctx context.Context, q querier) (version int, ok bool, err error) {
	exists, err := tableExists(ctx, q, "config")
	if err != nil || !exists {
		return 0, false, err
	}

	var v sql.NullInt64
	err = q.QueryRowContext(ctx, `SELECT db_version FROM config LIMIT 1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), true, nil
}
