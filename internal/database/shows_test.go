package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEpisode(t testing.TB, db *Database, show *Show, season, number int, file string) *Episode {
	t.Helper()

	ctx := context.Background()
	movieID := seedMovie(t, db, &Movie{Title: file, RelativePath: file})
	e := &Episode{Season: season, Number: number, Show: *show, Movie: Movie{ID: movieID}}
	_, err := db.AddEpisode(ctx, e)
	require.NoError(t, err)
	return e
}

func TestEpisodes(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	show := &Show{Name: "Twin Peaks"}
	_, err := db.AddShow(ctx, show)
	require.NoError(t, err)

	e2 := seedEpisode(t, db, show, 1, 2, "tp/s01e02.mkv")
	e1 := seedEpisode(t, db, show, 1, 1, "tp/s01e01.mkv")
	e3 := seedEpisode(t, db, show, 2, 1, "tp/s02e01.mkv")

	episodes, err := db.EpisodesByShow(ctx, show.ID)
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, []int64{e1.ID, e2.ID, e3.ID}, []int64{episodes[0].ID, episodes[1].ID, episodes[2].ID})
	assert.Equal(t, "Twin Peaks", episodes[0].Show.Name)
	assert.Equal(t, "tp/s01e01.mkv", episodes[0].Movie.RelativePath)
	assert.True(t, episodes[0].Movie.Show)

	// Episode files are not listed among movies.
	movies, err := db.Movies(ctx)
	require.NoError(t, err)
	assert.Empty(t, movies)

	m, err := db.GetMovie(ctx, e1.Movie.ID)
	require.NoError(t, err)
	ep, err := db.EpisodeOf(ctx, *m)
	require.NoError(t, err)
	assert.Equal(t, e1.ID, ep.ID)
	assert.Equal(t, *m, ep.Movie)

	got, err := db.GetEpisode(ctx, e3.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Season)
	assert.Equal(t, 1, got.Number)

	_, err = db.AddEpisode(ctx, &Episode{Show: *show, Movie: Movie{ID: e1.Movie.ID}})
	require.Error(t, err)
}

func TestEpisodeOfPlainMovie(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	id := seedMovie(t, db, &Movie{Title: "Ikiru", RelativePath: "ikiru.mkv"})
	m, err := db.GetMovie(ctx, id)
	require.NoError(t, err)

	_, err = db.EpisodeOf(ctx, *m)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteShowRemovesEpisodes(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	show := &Show{Name: "Dekalog"}
	_, err := db.AddShow(ctx, show)
	require.NoError(t, err)
	e := seedEpisode(t, db, show, 1, 1, "dekalog/one.mkv")

	require.NoError(t, db.DeleteShow(ctx, show.ID))

	_, err = db.GetEpisode(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetMovie(ctx, e.Movie.ID)
	require.NoError(t, err)
	_, err = db.GetShow(ctx, show.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMovieRemovesEpisode(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	show := &Show{Name: "The Wire"}
	_, err := db.AddShow(ctx, show)
	require.NoError(t, err)
	e := seedEpisode(t, db, show, 1, 1, "wire/s01e01.mkv")

	require.NoError(t, db.DeleteMovie(ctx, e.Movie.ID))

	episodes, err := db.EpisodesByShow(ctx, show.ID)
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

func TestDeleteEpisodeKeepsMovie(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	show := &Show{Name: "Fargo"}
	_, err := db.AddShow(ctx, show)
	require.NoError(t, err)
	e := seedEpisode(t, db, show, 1, 1, "fargo/s01e01.mkv")

	require.NoError(t, db.DeleteEpisode(ctx, e.ID))
	assert.ErrorIs(t, db.DeleteEpisode(ctx, e.ID), ErrNotFound)

	m, err := db.GetMovie(ctx, e.Movie.ID)
	require.NoError(t, err)
	assert.False(t, m.Show)
}

func TestUpdateShow(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	show := &Show{Name: "Seinfeld"}
	_, err := db.AddShow(ctx, show)
	require.NoError(t, err)

	show.Finished = true
	require.NoError(t, db.UpdateShow(ctx, show))

	shows, err := db.Shows(ctx)
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.True(t, shows[0].Finished)

	_, err = db.AddShow(ctx, &Show{})
	require.Error(t, err)
}
