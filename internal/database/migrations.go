package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/KDE/macaw-movies/internal/logging"
)

// DefaultMigrations returns the upgrade steps shipped with this release.
func DefaultMigrations() []Migration {
	return []Migration{
		{
			Version: 50,
			Steps: []Step{
				{Name: "add config.media_player", Run: addMediaPlayerColumn},
				{Name: "add movies.id_tmdb", Run: addMovieTMDBColumn},
				{Name: "add movies.show", Run: addMovieShowColumn},
				{Name: "replace paths_list with path_list", Run: replacePathsList},
				{Name: "add people.id_tmdb and people.imported", Run: addPeopleColumns},
				{Name: "split movie paths by watch path", Run: splitMoviePaths},
				{Name: "create show and episodes tables", Run: createShowTables},
			},
		},
	}
}

func addMediaPlayerColumn(ctx context.Context, conn *sql.Conn) error {
	_, err := addColumn(ctx, conn, "config", "media_player", "VARCHAR(255)")
	return err
}

func addMovieTMDBColumn(ctx context.Context, conn *sql.Conn) error {
	if _, err := addColumn(ctx, conn, "movies", "id_tmdb", "INTEGER"); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx, "UPDATE movies SET id_tmdb = ? WHERE id_tmdb IS NULL", 0)
	return err
}

func addMovieShowColumn(ctx context.Context, conn *sql.Conn) error {
	if _, err := addColumn(ctx, conn, "movies", "show", "BOOLEAN"); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx, "UPDATE movies SET show = ? WHERE show IS NULL", false)
	return err
}

// replacePathsList moves the legacy paths_list rows into path_list and marks
// them as movie folders.
func replacePathsList(ctx context.Context, conn *sql.Conn) error {
	exists, err := tableExists(ctx, conn, "path_list")
	if err != nil || exists {
		return err
	}

	if _, err := conn.ExecContext(ctx, pathListDDL); err != nil {
		return fmt.Errorf("failed to create path_list: %w", err)
	}

	legacy, err := tableExists(ctx, conn, "paths_list")
	if err != nil {
		return err
	}
	if legacy {
		if _, err := conn.ExecContext(ctx,
			`INSERT INTO path_list (id, movies_path, imported) SELECT id, movies_path, imported FROM paths_list`); err != nil {
			return fmt.Errorf("failed to copy paths_list: %w", err)
		}
		if _, err := conn.ExecContext(ctx, "DROP TABLE paths_list"); err != nil {
			return fmt.Errorf("failed to drop paths_list: %w", err)
		}
	}

	_, err = conn.ExecContext(ctx, "UPDATE path_list SET type = ? WHERE type IS NULL", PathTypeMovies)
	return err
}

func addPeopleColumns(ctx context.Context, conn *sql.Conn) error {
	if _, err := addColumn(ctx, conn, "people", "id_tmdb", "INTEGER"); err != nil {
		return err
	}
	if _, err := addColumn(ctx, conn, "people", "imported", "BOOLEAN"); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "UPDATE people SET id_tmdb = ? WHERE id_tmdb IS NULL", 0); err != nil {
		return err
	}
	_, err := conn.ExecContext(ctx, "UPDATE people SET imported = ? WHERE imported IS NULL", false)
	return err
}

// splitMoviePaths rebuilds movies with the id_path column and turns every
// absolute file_path into a path relative to its watch path. Movies outside
// every watch path keep their absolute path and id_path 0.
func splitMoviePaths(ctx context.Context, conn *sql.Conn) error {
	exists, err := columnExists(ctx, conn, "movies", "id_path")
	if err != nil || exists {
		return err
	}

	stmts := []string{
		"DROP TABLE IF EXISTS movies_new",
		moviesDDL("movies_new"),
		`INSERT INTO movies_new (id, title, original_title, release_date, country, duration, synopsis,
			id_path, file_path, poster_path, colored, format, suffix, rank, imported, id_tmdb, show)
		SELECT id, title, original_title, release_date, country, duration, synopsis,
			0, file_path, poster_path, colored, format, suffix, rank, imported, id_tmdb, show
		FROM movies`,
		"DROP TABLE movies",
		// Built under a new name and renamed last so that references held by
		// other tables keep pointing at "movies".
		"ALTER TABLE movies_new RENAME TO movies",
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to rebuild movies: %w", err)
		}
	}

	paths, err := listWatchPaths(ctx, conn)
	if err != nil {
		return err
	}

	type moviePath struct {
		id   int64
		path string
	}
	var movies []moviePath
	rows, err := conn.QueryContext(ctx, "SELECT id, file_path FROM movies")
	if err != nil {
		return err
	}
	for rows.Next() {
		var mp moviePath
		if err := rows.Scan(&mp.id, &mp.path); err != nil {
			closeRows(rows)
			return err
		}
		movies = append(movies, mp)
	}
	err = rows.Err()
	closeRows(rows)
	if err != nil {
		return err
	}

	unmatched := 0
	for _, mp := range movies {
		wp, rel, ok := matchWatchPath(paths, mp.path)
		if !ok {
			unmatched++
			logging.Warn("No watch path contains %s; movie %d left unassigned", mp.path, mp.id)
			continue
		}
		if _, err := conn.ExecContext(ctx,
			"UPDATE movies SET file_path = ?, id_path = ? WHERE id = ?", rel, wp.ID, mp.id); err != nil {
			return fmt.Errorf("failed to assign movie %d to watch path %d: %w", mp.id, wp.ID, err)
		}
	}

	logging.Info("Assigned %d of %d movies to watch paths", len(movies)-unmatched, len(movies))
	return nil
}

func createShowTables(ctx context.Context, conn *sql.Conn) error {
	for _, ddl := range []string{showDDL, episodesDDL} {
		if _, err := conn.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}
