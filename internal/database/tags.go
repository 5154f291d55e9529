package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/KDE/macaw-movies/internal/logging"
)

const selectTags = `SELECT ` + tagColumns + ` FROM tags t`

// createTag inserts a tag, or finds the existing one with the same name.
func createTag(ctx context.Context, q querier, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return InvalidID, errors.New("tag name cannot be empty")
	}

	res, err := q.ExecContext(ctx, "INSERT OR IGNORE INTO tags (name) VALUES (?)", name)
	if err != nil {
		return InvalidID, fmt.Errorf("failed to create tag %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return res.LastInsertId()
	}

	var id int64
	if err := q.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&id); err != nil {
		return InvalidID, fmt.Errorf("failed to look up tag %q: %w", name, err)
	}
	return id, nil
}

// CreateTag adds a tag and returns its id. A name that already exists
// returns the existing tag's id. InvalidID is returned with the error on
// failure.
func (d *Database) CreateTag(ctx context.Context, name string) (int64, error) {
	db, err := d.conn()
	if err != nil {
		return InvalidID, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("create_tag")
	id, err := createTag(ctx, db, name)
	done(err)
	if err != nil {
		return InvalidID, err
	}
	return id, nil
}

// GetTag returns the tag with the given id.
func (d *Database) GetTag(ctx context.Context, id int64) (*Tag, error) {
	return d.oneTag(ctx, selectTags+" WHERE t.id = ?", id)
}

// TagByName returns the tag with the given name.
func (d *Database) TagByName(ctx context.Context, name string) (*Tag, error) {
	return d.oneTag(ctx, selectTags+" WHERE t.name = ?", strings.TrimSpace(name))
}

func (d *Database) oneTag(ctx context.Context, query string, args ...any) (*Tag, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	t, err := scanTag(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Tags returns all tags ordered by name.
func (d *Database) Tags(ctx context.Context) ([]Tag, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return queryTags(ctx, db, selectTags+" ORDER BY t.name COLLATE NOCASE")
}

// RenameTag changes the name of a tag.
func (d *Database) RenameTag(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("tag name cannot be empty")
	}

	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx, "UPDATE tags SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to rename tag %d: %w", id, err)
	}
	return requireAffected(res)
}

// DeleteTag removes a tag and its links.
func (d *Database) DeleteTag(ctx context.Context, id int64) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete tag %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	logging.Debug("Deleted tag #%d", id)
	return nil
}

// LinkTag tags a movie. Tagging twice is a no-op.
func (d *Database) LinkTag(ctx context.Context, movieID, tagID int64) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("link_tag")
	_, err = db.ExecContext(ctx, "INSERT INTO movies_tags (id_movie, id_tag) VALUES (?, ?)", movieID, tagID)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to tag movie %d with %d: %w", movieID, tagID, err)
	}
	return nil
}

// UnlinkTag removes a tag from a movie.
func (d *Database) UnlinkTag(ctx context.Context, movieID, tagID int64) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = db.ExecContext(ctx, "DELETE FROM movies_tags WHERE id_movie = ? AND id_tag = ?", movieID, tagID)
	if err != nil {
		return fmt.Errorf("failed to untag movie %d: %w", movieID, err)
	}
	return nil
}
