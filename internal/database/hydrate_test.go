package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrateMovieRow(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()
	conn, err := db.conn()
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, "INSERT INTO path_list (id, movies_path, type, imported) VALUES (1, '/movies', 1, 1)")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO movies (id, title, original_title, release_date, country, duration,
		synopsis, id_path, file_path, poster_path, colored, format, suffix, rank, imported, id_tmdb, show)
		VALUES (7, 'Arrival', 'Arrival', '11/11/2016', 'US', 8160000, 'Linguist meets heptapods.',
		1, 'arrival.mkv', '/posters/7.jpg', 1, 'mkv', 'x264', 2, 1, 329865, 0)`)
	require.NoError(t, err)

	m, err := db.GetMovie(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), m.ID)
	assert.Equal(t, "Arrival", m.Title)
	assert.Equal(t, "Arrival", m.OriginalTitle)
	assert.Equal(t, time.Date(2016, time.November, 11, 0, 0, 0, 0, time.UTC), m.ReleaseDate)
	assert.Equal(t, "US", m.Country)
	assert.Equal(t, 8160000*time.Millisecond, m.Duration)
	assert.Equal(t, "Linguist meets heptapods.", m.Synopsis)
	assert.Equal(t, int64(1), m.PathID)
	assert.Equal(t, "arrival.mkv", m.RelativePath)
	assert.Equal(t, filepath.Join("/movies", "arrival.mkv"), m.AbsolutePath)
	assert.Equal(t, "/posters/7.jpg", m.PosterPath)
	assert.True(t, m.Colored)
	assert.Equal(t, "mkv", m.Format)
	assert.Equal(t, "x264", m.Suffix)
	assert.Equal(t, 2, m.Rank)
	assert.True(t, m.Imported)
	assert.Equal(t, int64(329865), m.TMDBID)
	assert.False(t, m.Show)
	assert.Empty(t, m.Tags)
	assert.Empty(t, m.People)
}

func TestHydrateKeepsRankAndImportedApart(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	pathID, err := db.AddWatchPath(ctx, "/movies", PathTypeMovies)
	require.NoError(t, err)
	id, err := db.AddMovie(ctx, &Movie{Title: "Solaris", PathID: pathID, RelativePath: "solaris.avi", Rank: 5})
	require.NoError(t, err)

	m, err := db.GetMovie(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Rank)
	assert.False(t, m.Imported)
}

func TestHydrateNullColumns(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()
	conn, err := db.conn()
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, "INSERT INTO movies (id, title, id_path, file_path) VALUES (3, 'Bare', 0, '/loose/bare.mkv')")
	require.NoError(t, err)

	m, err := db.GetMovie(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Bare", m.Title)
	assert.True(t, m.ReleaseDate.IsZero())
	assert.Zero(t, m.Duration)
	assert.Zero(t, m.Rank)
	assert.False(t, m.Colored)
	assert.Equal(t, "/loose/bare.mkv", m.AbsolutePath)
}

func TestHydrateMissingWatchPath(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()
	conn, err := db.conn()
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, "INSERT INTO movies (id, title, id_path, file_path) VALUES (4, 'Orphan', 99, 'orphan.mkv')")
	require.NoError(t, err)

	m, err := db.GetMovie(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(99), m.PathID)
	assert.Equal(t, "orphan.mkv", m.RelativePath)
	assert.Empty(t, m.AbsolutePath)
}

func TestHydrateRelationsOrder(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	pathID, err := db.AddWatchPath(ctx, "/movies", PathTypeMovies)
	require.NoError(t, err)
	id, err := db.AddMovie(ctx, &Movie{
		Title:        "Heat",
		PathID:       pathID,
		RelativePath: "heat.mkv",
		Tags:         []Tag{{Name: "thriller"}, {Name: "crime"}},
		People: []Person{
			{Name: "Robert De Niro", Role: RoleActor},
			{Name: "Michael Mann", Role: RoleDirector},
			{Name: "Al Pacino", Role: RoleActor},
		},
	})
	require.NoError(t, err)

	m, err := db.GetMovie(ctx, id)
	require.NoError(t, err)

	require.Len(t, m.Tags, 2)
	assert.Equal(t, "crime", m.Tags[0].Name)
	assert.Equal(t, "thriller", m.Tags[1].Name)

	require.Len(t, m.People, 3)
	assert.Equal(t, "Michael Mann", m.People[0].Name)
	assert.Equal(t, RoleDirector, m.People[0].Role)
	assert.Equal(t, "Al Pacino", m.People[1].Name)
	assert.Equal(t, "Robert De Niro", m.People[2].Name)
	assert.Len(t, m.PeopleWithRole(RoleActor), 2)
}

func TestHydrateEpisodeWithMissingShow(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()
	conn, err := db.conn()
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "INSERT INTO movies (id, title, id_path, file_path, show) VALUES (5, 'Pilot', 0, '/tv/pilot.mkv', 1)")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "INSERT INTO episodes (id, number, season, id_show, id_movie) VALUES (2, 1, 1, 42, 5)")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	e, err := db.GetEpisode(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), e.Show.ID)
	assert.Empty(t, e.Show.Name)
	assert.Equal(t, "Pilot", e.Movie.Title)
	assert.True(t, e.Movie.Show)
}

func TestParseAndFormatDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "", want: time.Time{}},
		{in: "25/12/1999", want: time.Date(1999, time.December, 25, 0, 0, 0, 0, time.UTC)},
		{in: "1999-12-25", want: time.Time{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDate(tt.in), tt.in)
	}

	assert.Nil(t, formatDate(time.Time{}))
	assert.Equal(t, "05/03/2001", formatDate(time.Date(2001, time.March, 5, 0, 0, 0, 0, time.UTC)))
}
