package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/KDE/macaw-movies/internal/logging"
)

const selectMovies = `SELECT ` + movieColumns + ` FROM movies m`

// AddMovie stores a new movie together with its tag and people links and
// sets m.ID. A movie whose (watch path, relative path) pair is already
// stored is absorbed: nothing is written and the existing id is returned.
// Tags and people without an id are created first.
func (d *Database) AddMovie(ctx context.Context, m *Movie) (int64, error) {
	if strings.TrimSpace(m.Title) == "" {
		return InvalidID, errors.New("movie title cannot be empty")
	}
	if m.RelativePath == "" {
		return InvalidID, errors.New("movie file path cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("add_movie")
	var absorbed bool
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO movies (title, original_title, release_date, country, duration, synopsis,
				id_path, file_path, poster_path, colored, format, suffix, rank, imported, id_tmdb, show)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			movieArgs(m)...)
		if err != nil {
			return err
		}

		if n, _ := res.RowsAffected(); n == 0 {
			absorbed = true
			return tx.QueryRowContext(ctx,
				"SELECT id FROM movies WHERE id_path = ? AND file_path = ?",
				m.PathID, m.RelativePath).Scan(&m.ID)
		}

		if m.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		return linkRelations(ctx, tx, m)
	})
	done(err)
	if err != nil {
		return InvalidID, fmt.Errorf("failed to add movie %q: %w", m.Title, err)
	}

	if absorbed {
		logging.Debug("Movie %s already stored as #%d", m.RelativePath, m.ID)
	}
	return m.ID, nil
}

// movieArgs returns the scalar columns in insert order, id excluded.
func movieArgs(m *Movie) []any {
	return []any{
		m.Title, nullString(m.OriginalTitle), formatDate(m.ReleaseDate), nullString(m.Country),
		m.Duration.Milliseconds(), nullString(m.Synopsis), m.PathID, m.RelativePath,
		nullString(m.PosterPath), m.Colored, nullString(m.Format), nullString(m.Suffix),
		m.Rank, m.Imported, m.TMDBID, m.Show,
	}
}

// linkRelations links m to its tags and people, creating those without an id.
func linkRelations(ctx context.Context, tx *sql.Tx, m *Movie) error {
	for i := range m.Tags {
		t := &m.Tags[i]
		if t.ID <= 0 {
			id, err := createTag(ctx, tx, t.Name)
			if err != nil {
				return err
			}
			t.ID = id
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO movies_tags (id_movie, id_tag) VALUES (?, ?)", m.ID, t.ID); err != nil {
			return fmt.Errorf("failed to tag movie %d with %d: %w", m.ID, t.ID, err)
		}
	}

	for i := range m.People {
		p := &m.People[i]
		if !p.Role.Valid() {
			return fmt.Errorf("person %q has invalid role %d", p.Name, p.Role)
		}
		if p.ID <= 0 {
			id, err := insertPerson(ctx, tx, p)
			if err != nil {
				return err
			}
			p.ID = id
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO movies_people (id_movie, id_people, type) VALUES (?, ?, ?)",
			m.ID, p.ID, p.Role); err != nil {
			return fmt.Errorf("failed to link person %d to movie %d: %w", p.ID, m.ID, err)
		}
	}
	return nil
}

// GetMovie returns the movie with the given id, with its tags and people.
func (d *Database) GetMovie(ctx context.Context, id int64) (*Movie, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("get_movie")
	m, err := queryMovie(ctx, db, selectMovies+" WHERE m.id = ?", id)
	if errors.Is(err, ErrNotFound) {
		done(nil)
		return nil, err
	}
	done(err)
	return m, err
}

// Movies returns every movie that is not a show episode, ordered by title.
func (d *Database) Movies(ctx context.Context) ([]Movie, error) {
	return d.queryMovies(ctx, selectMovies+` WHERE COALESCE(m.show, 0) = 0 ORDER BY m.title COLLATE NOCASE`)
}

// MoviesByWatchPath returns the movies stored under a watch path.
func (d *Database) MoviesByWatchPath(ctx context.Context, pathID int64) ([]Movie, error) {
	return d.queryMovies(ctx, selectMovies+` WHERE m.id_path = ? ORDER BY m.file_path`, pathID)
}

// PendingMovies returns the movies and episodes whose metadata has not been
// fetched yet, oldest first. It feeds the metadata fetcher.
func (d *Database) PendingMovies(ctx context.Context) ([]Movie, error) {
	return d.queryMovies(ctx, selectMovies+` WHERE COALESCE(m.imported, 0) = 0 ORDER BY m.id`)
}

// MoviesByTag returns the movies carrying a tag.
func (d *Database) MoviesByTag(ctx context.Context, tagID int64) ([]Movie, error) {
	return d.queryMovies(ctx, selectMovies+`
		JOIN movies_tags mt ON mt.id_movie = m.id
		WHERE mt.id_tag = ?
		ORDER BY m.title COLLATE NOCASE`, tagID)
}

// MoviesByPerson returns the movies a person is linked to. A zero role
// matches every role.
func (d *Database) MoviesByPerson(ctx context.Context, personID int64, role Role) ([]Movie, error) {
	return d.queryMovies(ctx, selectMovies+`
		WHERE m.id IN (
			SELECT mp.id_movie FROM movies_people mp
			WHERE mp.id_people = ? AND (? = 0 OR mp.type = ?)
		)
		ORDER BY m.title COLLATE NOCASE`, personID, role, role)
}

// MatchMovies returns the entries whose title, original title, country,
// synopsis, tags or people contain text, ignoring case. With shows set only
// show episodes are searched, otherwise only movies. An empty text matches
// everything.
func (d *Database) MatchMovies(ctx context.Context, text string, shows bool) ([]Movie, error) {
	pattern := likePattern(strings.TrimSpace(text))
	return d.queryMovies(ctx, selectMovies+`
		WHERE COALESCE(m.show, 0) = ?
		AND (
			m.title LIKE ? ESCAPE '\'
			OR m.original_title LIKE ? ESCAPE '\'
			OR m.country LIKE ? ESCAPE '\'
			OR m.synopsis LIKE ? ESCAPE '\'
			OR EXISTS (
				SELECT 1 FROM movies_tags mt JOIN tags t ON t.id = mt.id_tag
				WHERE mt.id_movie = m.id AND t.name LIKE ? ESCAPE '\'
			)
			OR EXISTS (
				SELECT 1 FROM movies_people mp JOIN people p ON p.id = mp.id_people
				WHERE mp.id_movie = m.id AND p.name LIKE ? ESCAPE '\'
			)
		)
		ORDER BY m.title COLLATE NOCASE`,
		shows, pattern, pattern, pattern, pattern, pattern, pattern)
}

func (d *Database) queryMovies(ctx context.Context, query string, args ...any) ([]Movie, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("query_movies")
	movies, err := queryMovies(ctx, db, query, args...)
	done(err)
	return movies, err
}

// UpdateMovie writes every scalar field of m and replaces its tag and people
// links with m.Tags and m.People.
func (d *Database) UpdateMovie(ctx context.Context, m *Movie) error {
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("movie title cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("update_movie")
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		args := append(movieArgs(m), m.ID)
		res, err := tx.ExecContext(ctx, `
			UPDATE movies SET title = ?, original_title = ?, release_date = ?, country = ?,
				duration = ?, synopsis = ?, id_path = ?, file_path = ?, poster_path = ?,
				colored = ?, format = ?, suffix = ?, rank = ?, imported = ?, id_tmdb = ?, show = ?
			WHERE id = ?`, args...)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM movies_tags WHERE id_movie = ?", m.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM movies_people WHERE id_movie = ?", m.ID); err != nil {
			return err
		}
		return linkRelations(ctx, tx, m)
	})
	done(err)
	if err != nil {
		return fmt.Errorf("failed to update movie %d: %w", m.ID, err)
	}
	return nil
}

// SetMoviePoster records where the poster image of a movie is stored.
func (d *Database) SetMoviePoster(ctx context.Context, id int64, posterPath string) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx, "UPDATE movies SET poster_path = ? WHERE id = ?", posterPath, id)
	if err != nil {
		return fmt.Errorf("failed to set poster of movie %d: %w", id, err)
	}
	return requireAffected(res)
}

// DeleteMovie removes a movie. Its links and its episode, if any, are
// removed by the foreign keys.
func (d *Database) DeleteMovie(ctx context.Context, id int64) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("delete_movie")
	res, err := db.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", id)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to delete movie %d: %w", id, err)
	}
	return requireAffected(res)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// likePattern wraps s for a substring LIKE match with '\' as escape.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
