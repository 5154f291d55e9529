package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"time"

	"github.com/KDE/macaw-movies/internal/logging"
)

// DateLayout is the stored format of release dates and birthdays.
const DateLayout = "02/01/2006"

// Column lists shared by every query feeding the scan functions below. The
// order is the contract with the positional Scan calls and must not change
// without changing both.
const (
	movieColumns = `m.id, m.title, m.original_title, m.release_date, m.country, m.duration,
		m.synopsis, m.id_path, m.file_path, m.poster_path, m.colored, m.format, m.suffix,
		m.rank, m.imported, m.id_tmdb, m.show`

	episodeColumns = `e.id, e.number, e.season, e.id_show, e.id_movie, s.id, s.name, s.finished`

	showColumns = `s.id, s.name, s.finished`

	peopleColumns = `p.id, p.name, p.birthday, p.biography, p.imported, p.id_tmdb`

	tagColumns = `t.id, t.name`

	playlistColumns = `pl.id, pl.name, pl.rate, pl.creation_date`

	watchPathColumns = `p.id, p.movies_path, p.type, p.imported`
)

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanMovie fills the scalar fields of a movie from a movieColumns row.
// AbsolutePath is left empty; see resolvePath.
func scanMovie(s scanner) (Movie, error) {
	var (
		m                                             Movie
		originalTitle, releaseDate, country, synopsis sql.NullString
		posterPath, format, suffix                    sql.NullString
		duration, pathID, rank, tmdbID                sql.NullInt64
		colored, imported, show                       sql.NullBool
	)

	err := s.Scan(
		&m.ID, &m.Title, &originalTitle, &releaseDate, &country, &duration,
		&synopsis, &pathID, &m.RelativePath, &posterPath, &colored, &format, &suffix,
		&rank, &imported, &tmdbID, &show,
	)
	if err != nil {
		return Movie{}, err
	}

	m.OriginalTitle = originalTitle.String
	m.ReleaseDate = parseDate(releaseDate.String)
	m.Country = country.String
	m.Duration = time.Duration(duration.Int64) * time.Millisecond
	m.Synopsis = synopsis.String
	m.PathID = pathID.Int64
	m.PosterPath = posterPath.String
	m.Colored = colored.Bool
	m.Format = format.String
	m.Suffix = suffix.String
	m.Rank = int(rank.Int64)
	m.Imported = imported.Bool
	m.TMDBID = tmdbID.Int64
	m.Show = show.Bool
	return m, nil
}

// scanEpisode reads an episodeColumns row. The show columns come from a
// LEFT JOIN, so a missing show yields a Show carrying only its id. Only
// Movie.ID is set.
func scanEpisode(s scanner) (Episode, error) {
	var (
		e        Episode
		number   sql.NullInt64
		season   sql.NullInt64
		showID   sql.NullInt64
		name     sql.NullString
		finished sql.NullBool
	)

	if err := s.Scan(&e.ID, &number, &season, &e.Show.ID, &e.Movie.ID, &showID, &name, &finished); err != nil {
		return Episode{}, err
	}

	e.Number = int(number.Int64)
	e.Season = int(season.Int64)
	if !showID.Valid {
		logging.Warn("Episode %d references missing show %d", e.ID, e.Show.ID)
		return e, nil
	}
	e.Show.Name = name.String
	e.Show.Finished = finished.Bool
	return e, nil
}

func scanShow(s scanner) (Show, error) {
	var (
		sh       Show
		name     sql.NullString
		finished sql.NullBool
	)
	if err := s.Scan(&sh.ID, &name, &finished); err != nil {
		return Show{}, err
	}
	sh.Name = name.String
	sh.Finished = finished.Bool
	return sh, nil
}

// scanPerson reads a peopleColumns row. When withRole is set the row carries
// one more column, the link type from movies_people.
func scanPerson(s scanner, withRole bool) (Person, error) {
	var (
		p         Person
		birthday  sql.NullString
		biography sql.NullString
		imported  sql.NullBool
		tmdbID    sql.NullInt64
		role      sql.NullInt64
	)

	dest := []any{&p.ID, &p.Name, &birthday, &biography, &imported, &tmdbID}
	if withRole {
		dest = append(dest, &role)
	}
	if err := s.Scan(dest...); err != nil {
		return Person{}, err
	}

	p.Birthday = parseDate(birthday.String)
	p.Biography = biography.String
	p.Imported = imported.Bool
	p.TMDBID = tmdbID.Int64
	p.Role = Role(role.Int64)
	return p, nil
}

func scanTag(s scanner) (Tag, error) {
	var t Tag
	err := s.Scan(&t.ID, &t.Name)
	return t, err
}

func scanPlaylist(s scanner) (Playlist, error) {
	var (
		pl      Playlist
		rate    sql.NullInt64
		created sql.NullInt64
	)
	if err := s.Scan(&pl.ID, &pl.Name, &rate, &created); err != nil {
		return Playlist{}, err
	}
	pl.Rating = int(rate.Int64)
	pl.CreatedAt = time.Unix(created.Int64, 0)
	return pl, nil
}

func scanWatchPath(s scanner) (WatchPath, error) {
	var (
		wp       WatchPath
		typ      sql.NullInt64
		imported sql.NullBool
	)
	if err := s.Scan(&wp.ID, &wp.Path, &typ, &imported); err != nil {
		return WatchPath{}, err
	}
	wp.Type = PathType(typ.Int64)
	wp.Imported = imported.Bool
	return wp, nil
}

// resolvePath sets the absolute path from the watch path index. An
// unassigned movie (id_path 0) stores its absolute path directly; a movie
// whose watch path is gone gets no absolute path.
func resolvePath(m *Movie, paths map[int64]string) {
	if m.PathID == 0 {
		m.AbsolutePath = m.RelativePath
		return
	}
	base, ok := paths[m.PathID]
	if !ok {
		logging.Warn("Movie %d references missing watch path %d", m.ID, m.PathID)
		m.AbsolutePath = ""
		return
	}
	m.AbsolutePath = filepath.Join(base, m.RelativePath)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		logging.Debug("Ignoring malformed date %q: %v", s, err)
		return time.Time{}
	}
	return t
}

func formatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(DateLayout)
}

// watchPathIndex maps watch path ids to their directory.
func watchPathIndex(ctx context.Context, q querier) (map[int64]string, error) {
	paths, err := listWatchPaths(ctx, q)
	if err != nil {
		return nil, err
	}
	index := make(map[int64]string, len(paths))
	for _, wp := range paths {
		index[wp.ID] = wp.Path
	}
	return index, nil
}

// queryMovies runs a query selecting movieColumns and returns fully hydrated
// movies: absolute path, tags and people. All rows are read and released
// before the relation queries run on the same connection.
func queryMovies(ctx context.Context, q querier, query string, args ...any) ([]Movie, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	movies := make([]Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			closeRows(rows)
			return nil, err
		}
		movies = append(movies, m)
	}
	err = rows.Err()
	closeRows(rows)
	if err != nil {
		return nil, err
	}

	if len(movies) == 0 {
		return movies, nil
	}

	paths, err := watchPathIndex(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range movies {
		resolvePath(&movies[i], paths)
		if err := attachRelations(ctx, q, &movies[i]); err != nil {
			return nil, err
		}
	}
	return movies, nil
}

// queryMovie is queryMovies for a single row, returning ErrNotFound when
// nothing matches.
func queryMovie(ctx context.Context, q querier, query string, args ...any) (*Movie, error) {
	movies, err := queryMovies(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, ErrNotFound
	}
	return &movies[0], nil
}

// attachRelations loads the tags and people linked to m.
func attachRelations(ctx context.Context, q querier, m *Movie) error {
	tags, err := queryTags(ctx, q,
		`SELECT `+tagColumns+` FROM tags t
		JOIN movies_tags mt ON mt.id_tag = t.id
		WHERE mt.id_movie = ?
		ORDER BY t.name COLLATE NOCASE`, m.ID)
	if err != nil {
		return err
	}
	m.Tags = tags

	people, err := queryPeople(ctx, q, true,
		`SELECT `+peopleColumns+`, mp.type FROM people p
		JOIN movies_people mp ON mp.id_people = p.id
		WHERE mp.id_movie = ?
		ORDER BY mp.type, p.name COLLATE NOCASE`, m.ID)
	if err != nil {
		return err
	}
	m.People = people
	return nil
}

func queryTags(ctx context.Context, q querier, query string, args ...any) ([]Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	tags := make([]Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func queryPeople(ctx context.Context, q querier, withRole bool, query string, args ...any) ([]Person, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	people := make([]Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows, withRole)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func queryShows(ctx context.Context, q querier, query string, args ...any) ([]Show, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	shows := make([]Show, 0)
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, s)
	}
	return shows, rows.Err()
}

// queryEpisodes runs a query selecting episodeColumns and hydrates the movie
// behind each episode.
func queryEpisodes(ctx context.Context, q querier, query string, args ...any) ([]Episode, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	episodes := make([]Episode, 0)
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			closeRows(rows)
			return nil, err
		}
		episodes = append(episodes, e)
	}
	err = rows.Err()
	closeRows(rows)
	if err != nil {
		return nil, err
	}

	for i := range episodes {
		m, err := queryMovie(ctx, q, `SELECT `+movieColumns+` FROM movies m WHERE m.id = ?`, episodes[i].Movie.ID)
		switch {
		case err == nil:
			episodes[i].Movie = *m
		case errors.Is(err, ErrNotFound):
			logging.Warn("Episode %d references missing movie %d", episodes[i].ID, episodes[i].Movie.ID)
		default:
			return nil, err
		}
	}
	return episodes, nil
}

// queryPlaylists runs a query selecting playlistColumns and attaches each
// playlist's movies.
func queryPlaylists(ctx context.Context, q querier, query string, args ...any) ([]Playlist, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	playlists := make([]Playlist, 0)
	for rows.Next() {
		pl, err := scanPlaylist(rows)
		if err != nil {
			closeRows(rows)
			return nil, err
		}
		playlists = append(playlists, pl)
	}
	err = rows.Err()
	closeRows(rows)
	if err != nil {
		return nil, err
	}

	for i := range playlists {
		movies, err := queryMovies(ctx, q,
			`SELECT `+movieColumns+` FROM movies m
			JOIN movies_playlists mpl ON mpl.id_movie = m.id
			WHERE mpl.id_playlist = ?
			ORDER BY mpl.id`, playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].Movies = movies
	}
	return playlists, nil
}

func listWatchPaths(ctx context.Context, q querier) ([]WatchPath, error) {
	return queryWatchPaths(ctx, q, `SELECT `+watchPathColumns+` FROM path_list p ORDER BY p.id`)
}

func queryWatchPaths(ctx context.Context, q querier, query string, args ...any) ([]WatchPath, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	paths := make([]WatchPath, 0)
	for rows.Next() {
		wp, err := scanWatchPath(rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, wp)
	}
	return paths, rows.Err()
}
