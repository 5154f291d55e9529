package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlaylist(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	toWatch, err := db.ToWatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, ToWatchPlaylistID, toWatch.ID)
	assert.Equal(t, ToWatchPlaylistName, toWatch.Name)
	assert.Zero(t, toWatch.Rating)
	assert.True(t, toWatch.IsToWatch())
	assert.Empty(t, toWatch.Movies)

	assert.ErrorIs(t, db.DeletePlaylist(ctx, ToWatchPlaylistID), ErrDefaultPlaylist)
	assert.ErrorIs(t, db.RenamePlaylist(ctx, ToWatchPlaylistID, "Later"), ErrDefaultPlaylist)

	conn, err := db.conn()
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, conn, "SELECT COUNT(*) FROM playlists WHERE name = ?", ToWatchPlaylistName))

	id, err := db.AddPlaylist(ctx, ToWatchPlaylistName, 3)
	require.NoError(t, err)
	assert.Equal(t, ToWatchPlaylistID, id)
}

func TestPlaylistLifecycle(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	first := seedMovie(t, db, &Movie{Title: "Paris, Texas", RelativePath: "paris.mkv"})
	second := seedMovie(t, db, &Movie{Title: "Alice in the Cities", RelativePath: "alice.mkv"})

	id, err := db.AddPlaylist(ctx, "Wenders", 4)
	require.NoError(t, err)
	dup, err := db.AddPlaylist(ctx, " Wenders ", 1)
	require.NoError(t, err)
	assert.Equal(t, id, dup)

	require.NoError(t, db.AddToPlaylist(ctx, id, first))
	require.NoError(t, db.AddToPlaylist(ctx, id, second))
	require.NoError(t, db.AddToPlaylist(ctx, id, first))

	pl, err := db.GetPlaylist(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Wenders", pl.Name)
	assert.Equal(t, 4, pl.Rating)
	assert.False(t, pl.CreatedAt.IsZero())
	require.Len(t, pl.Movies, 2)
	assert.Equal(t, first, pl.Movies[0].ID)
	assert.Equal(t, second, pl.Movies[1].ID)
	assert.False(t, pl.IsToWatch())

	require.NoError(t, db.RenamePlaylist(ctx, id, "Road movies"))
	require.NoError(t, db.RatePlaylist(ctx, id, 5))
	require.NoError(t, db.RemoveFromPlaylist(ctx, id, first))

	all, err := db.Playlists(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ToWatchPlaylistID, all[0].ID)
	assert.Equal(t, "Road movies", all[1].Name)
	assert.Equal(t, 5, all[1].Rating)
	require.Len(t, all[1].Movies, 1)
	assert.Equal(t, second, all[1].Movies[0].ID)

	require.NoError(t, db.DeletePlaylist(ctx, id))
	_, err = db.GetPlaylist(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeletePlaylist(ctx, id), ErrNotFound)

	conn, err := db.conn()
	require.NoError(t, err)
	assert.Equal(t, 0, countRows(t, conn, "SELECT COUNT(*) FROM movies_playlists"))
	assert.Equal(t, 2, countRows(t, conn, "SELECT COUNT(*) FROM movies"))

	_, err = db.AddPlaylist(ctx, "", 0)
	require.Error(t, err)
}

func TestIsToWatch(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	id := seedMovie(t, db, &Movie{Title: "Tokyo Story", RelativePath: "tokyo.mkv"})

	watch, err := db.IsToWatch(ctx, id)
	require.NoError(t, err)
	assert.False(t, watch)

	require.NoError(t, db.AddToPlaylist(ctx, ToWatchPlaylistID, id))
	watch, err = db.IsToWatch(ctx, id)
	require.NoError(t, err)
	assert.True(t, watch)

	toWatch, err := db.ToWatch(ctx)
	require.NoError(t, err)
	require.Len(t, toWatch.Movies, 1)
	assert.Equal(t, "Tokyo Story", toWatch.Movies[0].Title)
}
