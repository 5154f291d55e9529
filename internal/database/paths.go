package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KDE/macaw-movies/internal/logging"
)

// separators are the path separators recognised in stored paths. Stores
// written on another platform may use either.
const separators = `/` + string(filepath.Separator)

func isSeparator(c byte) bool {
	return strings.IndexByte(separators, c) >= 0
}

// cleanWatchPath strips trailing separators, keeping a bare root intact.
func cleanWatchPath(p string) string {
	p = strings.TrimSpace(p)
	trimmed := strings.TrimRight(p, separators)
	if trimmed == "" && p != "" {
		return p[:1]
	}
	return trimmed
}

// relativeTo returns p relative to base when p lies strictly below base.
// Matching happens at separator boundaries, so /movies does not contain
// /movies2/a.mkv.
func relativeTo(base, p string) (string, bool) {
	base = cleanWatchPath(base)
	if base == "" || !strings.HasPrefix(p, base) {
		return "", false
	}
	rest := p[len(base):]
	if !isSeparator(base[len(base)-1]) {
		if rest == "" || !isSeparator(rest[0]) {
			return "", false
		}
	}
	rel := strings.TrimLeft(rest, separators)
	if rel == "" {
		return "", false
	}
	return rel, true
}

// matchWatchPath picks the deepest watch path containing abs.
func matchWatchPath(paths []WatchPath, abs string) (WatchPath, string, bool) {
	var (
		best    WatchPath
		bestRel string
		found   bool
	)
	for _, wp := range paths {
		rel, ok := relativeTo(wp.Path, abs)
		if !ok {
			continue
		}
		if !found || len(cleanWatchPath(wp.Path)) > len(cleanWatchPath(best.Path)) {
			best, bestRel, found = wp, rel, true
		}
	}
	return best, bestRel, found
}

// prefixOf returns the LIKE-free prefix used to match everything below p.
func prefixOf(p string) string {
	p = cleanWatchPath(p)
	if p != "" && isSeparator(p[len(p)-1]) {
		return p
	}
	return p + string(filepath.Separator)
}

// AddWatchPath registers a directory and returns its id. Adding a path that
// is already known is not an error and returns the existing id.
func (d *Database) AddWatchPath(ctx context.Context, path string, typ PathType) (int64, error) {
	path = cleanWatchPath(path)
	if path == "" {
		return InvalidID, errors.New("watch path cannot be empty")
	}
	if !typ.Valid() {
		return InvalidID, fmt.Errorf("invalid watch path type %d", typ)
	}

	db, err := d.conn()
	if err != nil {
		return InvalidID, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("add_watch_path")
	res, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO path_list (movies_path, type, imported) VALUES (?, ?, ?)",
		path, typ, false)
	done(err)
	if err != nil {
		return InvalidID, fmt.Errorf("failed to add watch path %s: %w", path, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		var id int64
		if err := db.QueryRowContext(ctx, "SELECT id FROM path_list WHERE movies_path = ?", path).Scan(&id); err != nil {
			return InvalidID, fmt.Errorf("failed to look up watch path %s: %w", path, err)
		}
		logging.Debug("Watch path %s already registered as #%d", path, id)
		return id, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return InvalidID, err
	}
	logging.Info("Added watch path %s (%s) as #%d", path, typ, id)
	return id, nil
}

// WatchPath returns the watch path with the given id.
func (d *Database) WatchPath(ctx context.Context, id int64) (*WatchPath, error) {
	return d.oneWatchPath(ctx, `SELECT `+watchPathColumns+` FROM path_list p WHERE p.id = ?`, id)
}

// WatchPathByPath returns the watch path registered for dir.
func (d *Database) WatchPathByPath(ctx context.Context, dir string) (*WatchPath, error) {
	return d.oneWatchPath(ctx, `SELECT `+watchPathColumns+` FROM path_list p WHERE p.movies_path = ?`, cleanWatchPath(dir))
}

func (d *Database) oneWatchPath(ctx context.Context, query string, args ...any) (*WatchPath, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	wp, err := scanWatchPath(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wp, nil
}

// WatchPaths returns every registered watch path.
func (d *Database) WatchPaths(ctx context.Context) ([]WatchPath, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return listWatchPaths(ctx, db)
}

// WatchPathsByImported returns the watch paths whose imported flag matches.
// The scanner asks for imported=false to find folders still to be read.
func (d *Database) WatchPathsByImported(ctx context.Context, imported bool) ([]WatchPath, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return queryWatchPaths(ctx, db,
		`SELECT `+watchPathColumns+` FROM path_list p WHERE COALESCE(p.imported, 0) = ? ORDER BY p.id`, imported)
}

// UpdateWatchPath changes the directory and type of an existing watch path.
func (d *Database) UpdateWatchPath(ctx context.Context, wp WatchPath) error {
	if !wp.Type.Valid() {
		return fmt.Errorf("invalid watch path type %d", wp.Type)
	}

	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx,
		"UPDATE path_list SET movies_path = ?, type = ? WHERE id = ?",
		cleanWatchPath(wp.Path), wp.Type, wp.ID)
	if err != nil {
		return fmt.Errorf("failed to update watch path %d: %w", wp.ID, err)
	}
	return requireAffected(res)
}

// SetWatchPathImported marks whether the contents of a watch path have been
// scanned into the library.
func (d *Database) SetWatchPathImported(ctx context.Context, id int64, imported bool) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx, "UPDATE path_list SET imported = ? WHERE id = ?", imported, id)
	if err != nil {
		return fmt.Errorf("failed to mark watch path %d: %w", id, err)
	}
	return requireAffected(res)
}

// DeleteWatchPath removes a watch path, every watch path nested below it
// and every movie stored under any of them. Related episodes and links go
// with the movies through the foreign keys. It returns the number of movies
// removed.
func (d *Database) DeleteWatchPath(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("delete_watch_path")
	var removed int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		var dir string
		err := tx.QueryRowContext(ctx, "SELECT movies_path FROM path_list WHERE id = ?", id).Scan(&dir)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		prefix := prefixOf(dir)
		dir = cleanWatchPath(dir)

		res, err := tx.ExecContext(ctx, `
			DELETE FROM movies WHERE id_path IN (
				SELECT id FROM path_list
				WHERE movies_path = ? OR substr(movies_path, 1, length(?)) = ?
			)`, dir, prefix, prefix)
		if err != nil {
			return fmt.Errorf("failed to delete movies under %s: %w", dir, err)
		}
		removed, _ = res.RowsAffected()

		// Movies of an outer watch path whose files lie below dir.
		res, err = tx.ExecContext(ctx, `
			DELETE FROM movies WHERE id IN (
				SELECT m.id FROM movies m JOIN path_list p ON p.id = m.id_path
				WHERE substr(rtrim(p.movies_path, ?) || ? || m.file_path, 1, length(?)) = ?
			)`, separators, string(filepath.Separator), prefix, prefix)
		if err != nil {
			return fmt.Errorf("failed to delete nested movies under %s: %w", dir, err)
		}
		n, _ := res.RowsAffected()
		removed += n

		// Movies never assigned to a watch path still carry their absolute path.
		res, err = tx.ExecContext(ctx,
			"DELETE FROM movies WHERE id_path = 0 AND substr(file_path, 1, length(?)) = ?", prefix, prefix)
		if err != nil {
			return fmt.Errorf("failed to delete unassigned movies under %s: %w", dir, err)
		}
		n, _ = res.RowsAffected()
		removed += n

		_, err = tx.ExecContext(ctx,
			"DELETE FROM path_list WHERE movies_path = ? OR substr(movies_path, 1, length(?)) = ?",
			dir, prefix, prefix)
		return err
	})
	done(err)
	if err != nil {
		return 0, err
	}

	logging.Info("Removed watch path #%d and %d movies", id, removed)
	return removed, nil
}

// requireAffected turns an update that matched no row into ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
