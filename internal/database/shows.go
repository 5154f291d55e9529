package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	selectShows    = `SELECT ` + showColumns + ` FROM show s`
	selectEpisodes = `SELECT ` + episodeColumns + ` FROM episodes e LEFT JOIN show s ON s.id = e.id_show`
)

// AddShow stores a new show, sets s.ID and returns it.
func (d *Database) AddShow(ctx context.Context, s *Show) (int64, error) {
	if strings.TrimSpace(s.Name) == "" {
		return InvalidID, errors.New("show name cannot be empty")
	}

	db, err := d.conn()
	if err != nil {
		return InvalidID, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx, "INSERT INTO show (name, finished) VALUES (?, ?)", s.Name, s.Finished)
	if err != nil {
		return InvalidID, fmt.Errorf("failed to add show %q: %w", s.Name, err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return InvalidID, err
	}
	return s.ID, nil
}

// GetShow returns the show with the given id.
func (d *Database) GetShow(ctx context.Context, id int64) (*Show, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	s, err := scanShow(db.QueryRowContext(ctx, selectShows+" WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Shows returns every show ordered by name.
func (d *Database) Shows(ctx context.Context) ([]Show, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return queryShows(ctx, db, selectShows+" ORDER BY s.name COLLATE NOCASE")
}

// UpdateShow writes the name and finished flag of a show.
func (d *Database) UpdateShow(ctx context.Context, s *Show) error {
	return d.execOne(ctx, "UPDATE show SET name = ?, finished = ? WHERE id = ?", s.Name, s.Finished, s.ID)
}

// DeleteShow removes a show and, through the foreign keys, all its
// episodes. The movies holding the episode files stay.
func (d *Database) DeleteShow(ctx context.Context, id int64) error {
	return d.execOne(ctx, "DELETE FROM show WHERE id = ?", id)
}

// AddEpisode makes e.Movie an episode of e.Show and flags the movie as a
// show entry. Both must already be stored.
func (d *Database) AddEpisode(ctx context.Context, e *Episode) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO episodes (number, season, id_show, id_movie) VALUES (?, ?, ?, ?)",
			e.Number, e.Season, e.Show.ID, e.Movie.ID)
		if err != nil {
			return err
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE movies SET show = ? WHERE id = ?", true, e.Movie.ID)
		return err
	})
	if err != nil {
		return InvalidID, fmt.Errorf("failed to add episode of show %d: %w", e.Show.ID, err)
	}
	e.Movie.Show = true
	return e.ID, nil
}

// GetEpisode returns an episode with its show and fully hydrated movie.
func (d *Database) GetEpisode(ctx context.Context, id int64) (*Episode, error) {
	return d.oneEpisode(ctx, selectEpisodes+" WHERE e.id = ?", id)
}

// EpisodesByShow returns the episodes of a show in season and number order.
func (d *Database) EpisodesByShow(ctx context.Context, showID int64) ([]Episode, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return queryEpisodes(ctx, db, selectEpisodes+" WHERE e.id_show = ? ORDER BY e.season, e.number", showID)
}

// EpisodeOf wraps an already loaded movie in its episode, sparing the
// movie lookup. It returns ErrNotFound when the movie is not an episode.
func (d *Database) EpisodeOf(ctx context.Context, m Movie) (*Episode, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	e, err := scanEpisode(db.QueryRowContext(ctx, selectEpisodes+" WHERE e.id_movie = ?", m.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Movie = m
	return &e, nil
}

func (d *Database) oneEpisode(ctx context.Context, query string, args ...any) (*Episode, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	episodes, err := queryEpisodes(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	if len(episodes) == 0 {
		return nil, ErrNotFound
	}
	return &episodes[0], nil
}

// DeleteEpisode removes the episode record. The movie holding the file
// stays and is flagged as a plain movie again.
func (d *Database) DeleteEpisode(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.withTx(ctx, func(tx *sql.Tx) error {
		var movieID int64
		err := tx.QueryRowContext(ctx, "SELECT id_movie FROM episodes WHERE id = ?", id).Scan(&movieID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM episodes WHERE id = ?", id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE movies SET show = ? WHERE id = ?", false, movieID)
		return err
	})
}
