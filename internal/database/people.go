package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const selectPeople = `SELECT ` + peopleColumns + ` FROM people p`

func insertPerson(ctx context.Context, q querier, p *Person) (int64, error) {
	if strings.TrimSpace(p.Name) == "" {
		return InvalidID, errors.New("person name cannot be empty")
	}
	res, err := q.ExecContext(ctx,
		"INSERT INTO people (name, birthday, biography, imported, id_tmdb) VALUES (?, ?, ?, ?, ?)",
		p.Name, formatDate(p.Birthday), nullString(p.Biography), p.Imported, p.TMDBID)
	if err != nil {
		return InvalidID, fmt.Errorf("failed to add person %q: %w", p.Name, err)
	}
	return res.LastInsertId()
}

// AddPerson stores a new person, sets p.ID and returns it. InvalidID is
// returned with the error on failure.
func (d *Database) AddPerson(ctx context.Context, p *Person) (int64, error) {
	db, err := d.conn()
	if err != nil {
		return InvalidID, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := insertPerson(ctx, db, p)
	if err != nil {
		return InvalidID, err
	}
	p.ID = id
	return id, nil
}

// GetPerson returns the person with the given id.
func (d *Database) GetPerson(ctx context.Context, id int64) (*Person, error) {
	people, err := d.queryPeople(ctx, false, selectPeople+" WHERE p.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(people) == 0 {
		return nil, ErrNotFound
	}
	return &people[0], nil
}

// People returns every person ordered by name.
func (d *Database) People(ctx context.Context) ([]Person, error) {
	return d.queryPeople(ctx, false, selectPeople+" ORDER BY p.name COLLATE NOCASE")
}

// PeopleByRole returns the people linked to at least one movie with role.
// Role is set on every returned person.
func (d *Database) PeopleByRole(ctx context.Context, role Role) ([]Person, error) {
	return d.queryPeople(ctx, true, `SELECT DISTINCT `+peopleColumns+`, mp.type FROM people p
		JOIN movies_people mp ON mp.id_people = p.id
		WHERE mp.type = ?
		ORDER BY p.name COLLATE NOCASE`, role)
}

func (d *Database) queryPeople(ctx context.Context, withRole bool, query string, args ...any) ([]Person, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return queryPeople(ctx, db, withRole, query, args...)
}

// UpdatePerson writes every field of p.
func (d *Database) UpdatePerson(ctx context.Context, p *Person) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("person name cannot be empty")
	}

	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx,
		"UPDATE people SET name = ?, birthday = ?, biography = ?, imported = ?, id_tmdb = ? WHERE id = ?",
		p.Name, formatDate(p.Birthday), nullString(p.Biography), p.Imported, p.TMDBID, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update person %d: %w", p.ID, err)
	}
	return requireAffected(res)
}

// DeletePerson removes a person and, through the foreign keys, their links.
func (d *Database) DeletePerson(ctx context.Context, id int64) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := db.ExecContext(ctx, "DELETE FROM people WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete person %d: %w", id, err)
	}
	return requireAffected(res)
}

// LinkPerson links a person to a movie with a role. Linking twice is a no-op.
func (d *Database) LinkPerson(ctx context.Context, movieID, personID int64, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %d", role)
	}

	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	done := observeQuery("link_person")
	_, err = db.ExecContext(ctx,
		"INSERT INTO movies_people (id_movie, id_people, type) VALUES (?, ?, ?)", movieID, personID, role)
	done(err)
	if err != nil {
		return fmt.Errorf("failed to link person %d to movie %d: %w", personID, movieID, err)
	}
	return nil
}

// UnlinkPerson removes one role link between a person and a movie.
func (d *Database) UnlinkPerson(ctx context.Context, movieID, personID int64, role Role) error {
	db, err := d.conn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = db.ExecContext(ctx,
		"DELETE FROM movies_people WHERE id_movie = ? AND id_people = ? AND type = ?", movieID, personID, role)
	if err != nil {
		return fmt.Errorf("failed to unlink person %d from movie %d: %w", personID, movieID, err)
	}
	return nil
}

// PersonByTMDB returns the person stored with the given external catalog
// id. The metadata fetcher uses it to reuse people across movies.
func (d *Database) PersonByTMDB(ctx context.Context, tmdbID int64) (*Person, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	p, err := scanPerson(db.QueryRowContext(ctx, selectPeople+" WHERE p.id_tmdb = ? LIMIT 1", tmdbID), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
