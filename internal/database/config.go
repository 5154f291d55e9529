package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SchemaVersion returns the version stored in the configuration row.
func (d *Database) SchemaVersion(ctx context.Context) (int, error) {
	db, err := d.conn()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("schema_version")
	v, ok, err := readVersion(ctx, db)
	done(err)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

// MediaPlayerPath returns the configured external player, or "" when unset.
func (d *Database) MediaPlayerPath(ctx context.Context) (string, error) {
	db, err := d.conn()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var player sql.NullString
	err = db.QueryRowContext(ctx, "SELECT media_player FROM config LIMIT 1").Scan(&player)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read media player: %w", err)
	}
	return player.String, nil
}

// SetMediaPlayerPath stores the external player. A blank path clears it.
func (d *Database) SetMediaPlayerPath(ctx context.Context, path string) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("set_media_player")
	_, err = db.ExecContext(ctx, "UPDATE config SET media_player = ?", nullString(strings.TrimSpace(path)))
	done(err)
	if err != nil {
		return fmt.Errorf("failed to set media player: %w", err)
	}
	return nil
}
