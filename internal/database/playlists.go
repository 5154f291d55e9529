package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const selectPlaylists = `SELECT ` + playlistColumns + ` FROM playlists pl`

// AddPlaylist creates a playlist and returns its id. A name that already
// exists returns the existing playlist's id.
func (d *Database) AddPlaylist(ctx context.Context, name string, rating int) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return InvalidID, errors.New("playlist name cannot be empty")
	}

	db, err := d.conn()
	if err != nil {
		return InvalidID, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO playlists (name, rate, creation_date) VALUES (?, ?, ?)",
		name, rating, time.Now().Unix())
	if err != nil {
		return InvalidID, fmt.Errorf("failed to add playlist %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return res.LastInsertId()
	}

	var id int64
	if err := db.QueryRowContext(ctx, "SELECT id FROM playlists WHERE name = ?", name).Scan(&id); err != nil {
		return InvalidID, fmt.Errorf("failed to look up playlist %q: %w", name, err)
	}
	return id, nil
}

// GetPlaylist returns a playlist with its movies.
func (d *Database) GetPlaylist(ctx context.Context, id int64) (*Playlist, error) {
	playlists, err := d.queryPlaylists(ctx, selectPlaylists+" WHERE pl.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return nil, ErrNotFound
	}
	return &playlists[0], nil
}

// ToWatch returns the reserved "To Watch" playlist.
func (d *Database) ToWatch(ctx context.Context) (*Playlist, error) {
	return d.GetPlaylist(ctx, ToWatchPlaylistID)
}

// Playlists returns every playlist with its movies, the default one first.
func (d *Database) Playlists(ctx context.Context) ([]Playlist, error) {
	return d.queryPlaylists(ctx, selectPlaylists+" ORDER BY pl.id = ? DESC, pl.name COLLATE NOCASE", ToWatchPlaylistID)
}

func (d *Database) queryPlaylists(ctx context.Context, query string, args ...any) ([]Playlist, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return queryPlaylists(ctx, db, query, args...)
}

// RenamePlaylist changes a playlist's name. The default playlist keeps its name.
func (d *Database) RenamePlaylist(ctx context.Context, id int64, name string) error {
	if id == ToWatchPlaylistID {
		return ErrDefaultPlaylist
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("playlist name cannot be empty")
	}
	return d.execOne(ctx, "UPDATE playlists SET name = ? WHERE id = ?", name, id)
}

// RatePlaylist sets a playlist's rating.
func (d *Database) RatePlaylist(ctx context.Context, id int64, rating int) error {
	return d.execOne(ctx, "UPDATE playlists SET rate = ? WHERE id = ?", rating, id)
}

// DeletePlaylist removes a playlist and its links. The default playlist
// cannot be removed.
func (d *Database) DeletePlaylist(ctx context.Context, id int64) error {
	if id == ToWatchPlaylistID {
		return ErrDefaultPlaylist
	}
	return d.execOne(ctx, "DELETE FROM playlists WHERE id = ?", id)
}

// AddToPlaylist appends a movie to a playlist. Adding it twice is a no-op.
func (d *Database) AddToPlaylist(ctx context.Context, playlistID, movieID int64) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("link_playlist")
	_, err = db.ExecContext(ctx,
		"INSERT INTO movies_playlists (id_movie, id_playlist) VALUES (?, ?)", movieID, playlistID)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to add movie %d to playlist %d: %w", movieID, playlistID, err)
	}
	return nil
}

// RemoveFromPlaylist removes a movie from a playlist.
func (d *Database) RemoveFromPlaylist(ctx context.Context, playlistID, movieID int64) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = db.ExecContext(ctx,
		"DELETE FROM movies_playlists WHERE id_movie = ? AND id_playlist = ?", movieID, playlistID)
	if err != nil {
		return fmt.Errorf("failed to remove movie %d from playlist %d: %w", movieID, playlistID, err)
	}
	return nil
}

// IsToWatch reports whether a movie is in the "To Watch" playlist.
func (d *Database) IsToWatch(ctx context.Context, movieID int64) (bool, error) {
	db, err := d.conn()
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var one int
	err = db.QueryRowContext(ctx,
		"SELECT 1 FROM movies_playlists WHERE id_playlist = ? AND id_movie = ?",
		ToWatchPlaylistID, movieID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// execOne runs a statement that must touch exactly one existing row.
func (d *Database) execOne(ctx context.Context, query string, args ...any) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
