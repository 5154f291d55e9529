package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTag(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	id, err := db.CreateTag(ctx, "western")
	require.NoError(t, err)
	assert.Positive(t, id)

	again, err := db.CreateTag(ctx, " western ")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	bad, err := db.CreateTag(ctx, "")
	require.Error(t, err)
	assert.Equal(t, InvalidID, bad)

	tags, err := db.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Tag{{ID: id, Name: "western"}}, tags)
}

func TestTagLifecycle(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	movieID := seedMovie(t, db, &Movie{Title: "Unforgiven", RelativePath: "unforgiven.mkv"})
	id, err := db.CreateTag(ctx, "westrn")
	require.NoError(t, err)
	_, err = db.CreateTag(ctx, "Drama")
	require.NoError(t, err)

	require.NoError(t, db.RenameTag(ctx, id, "western"))
	tag, err := db.TagByName(ctx, "western")
	require.NoError(t, err)
	assert.Equal(t, id, tag.ID)

	tags, err := db.Tags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Drama", tags[0].Name)

	require.NoError(t, db.LinkTag(ctx, movieID, id))
	require.NoError(t, db.UnlinkTag(ctx, movieID, id))
	m, err := db.GetMovie(ctx, movieID)
	require.NoError(t, err)
	assert.Empty(t, m.Tags)

	require.NoError(t, db.LinkTag(ctx, movieID, id))
	require.NoError(t, db.DeleteTag(ctx, id))
	m, err = db.GetMovie(ctx, movieID)
	require.NoError(t, err)
	assert.Empty(t, m.Tags)

	assert.ErrorIs(t, db.DeleteTag(ctx, id), ErrNotFound)
	assert.ErrorIs(t, db.RenameTag(ctx, id, "gone"), ErrNotFound)
	_, err = db.GetTag(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	require.Error(t, db.RenameTag(ctx, id, " "))
}

func TestPeople(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	movieID := seedMovie(t, db, &Movie{Title: "Rashomon", RelativePath: "rashomon.mkv"})

	kurosawa := &Person{Name: "Akira Kurosawa", TMDBID: 5026}
	id, err := db.AddPerson(ctx, kurosawa)
	require.NoError(t, err)
	assert.Equal(t, id, kurosawa.ID)

	mifune := &Person{Name: "Toshiro Mifune"}
	_, err = db.AddPerson(ctx, mifune)
	require.NoError(t, err)

	bad, err := db.AddPerson(ctx, &Person{})
	require.Error(t, err)
	assert.Equal(t, InvalidID, bad)

	require.NoError(t, db.LinkPerson(ctx, movieID, kurosawa.ID, RoleDirector))
	require.NoError(t, db.LinkPerson(ctx, movieID, mifune.ID, RoleActor))

	directors, err := db.PeopleByRole(ctx, RoleDirector)
	require.NoError(t, err)
	require.Len(t, directors, 1)
	assert.Equal(t, "Akira Kurosawa", directors[0].Name)
	assert.Equal(t, RoleDirector, directors[0].Role)

	found, err := db.PersonByTMDB(ctx, 5026)
	require.NoError(t, err)
	assert.Equal(t, kurosawa.ID, found.ID)
	_, err = db.PersonByTMDB(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	kurosawa.Biography = "Director of Seven Samurai."
	kurosawa.Imported = true
	require.NoError(t, db.UpdatePerson(ctx, kurosawa))
	got, err := db.GetPerson(ctx, kurosawa.ID)
	require.NoError(t, err)
	assert.Equal(t, "Director of Seven Samurai.", got.Biography)
	assert.True(t, got.Imported)
	assert.Zero(t, got.Role)

	require.NoError(t, db.UnlinkPerson(ctx, movieID, mifune.ID, RoleActor))
	require.NoError(t, db.DeletePerson(ctx, kurosawa.ID))
	m, err := db.GetMovie(ctx, movieID)
	require.NoError(t, err)
	assert.Empty(t, m.People)

	people, err := db.People(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Toshiro Mifune", people[0].Name)
	assert.ErrorIs(t, db.DeletePerson(ctx, kurosawa.ID), ErrNotFound)
}

func TestConfigRow(t *testing.T) {
	t.Parallel()

	db, _ := setupTestDB(t)
	ctx := context.Background()

	player, err := db.MediaPlayerPath(ctx)
	require.NoError(t, err)
	assert.Empty(t, player)

	require.NoError(t, db.SetMediaPlayerPath(ctx, "/usr/bin/mpv"))
	player, err = db.MediaPlayerPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/mpv", player)

	require.NoError(t, db.SetMediaPlayerPath(ctx, " "))
	player, err = db.MediaPlayerPath(ctx)
	require.NoError(t, err)
	assert.Empty(t, player)
}
