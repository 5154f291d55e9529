package posters

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KDE/macaw-movies/internal/database"
)

func pngBytes(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestStoreLinksPoster(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	db, err := database.Open(ctx, filepath.Join(dir, "database.sqlite"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pathID, err := db.AddWatchPath(ctx, "/movies", database.PathTypeMovies)
	require.NoError(t, err)
	id, err := db.AddMovie(ctx, &database.Movie{Title: "Vertigo", PathID: pathID, RelativePath: "vertigo.mkv"})
	require.NoError(t, err)

	cache, err := NewCache(filepath.Join(dir, "posters"), 100, db)
	require.NoError(t, err)

	path, err := cache.Store(ctx, id, pngBytes(t, 400, 600))
	require.NoError(t, err)
	assert.Equal(t, cache.Path(id), path)

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 100)
	assert.Equal(t, 100, img.Bounds().Dy())

	m, err := db.GetMovie(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, path, m.PosterPath)

	require.NoError(t, cache.Remove(id))
	require.NoError(t, cache.Remove(id))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStoreKeepsSmallImages(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(t.TempDir(), 0, fakeStore{})
	require.NoError(t, err)

	path, err := cache.Store(context.Background(), 3, pngBytes(t, 40, 60))
	require.NoError(t, err)

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestStoreRejectsGarbage(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(t.TempDir(), 0, fakeStore{})
	require.NoError(t, err)

	_, err = cache.Store(context.Background(), 1, strings.NewReader("not an image"))
	require.Error(t, err)
	_, statErr := os.Stat(cache.Path(1))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestStoreUnknownMovieRemovesFile(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(t.TempDir(), 0, fakeStore{err: database.ErrNotFound})
	require.NoError(t, err)

	_, err = cache.Store(context.Background(), 9, pngBytes(t, 10, 10))
	assert.ErrorIs(t, err, database.ErrNotFound)
	_, statErr := os.Stat(cache.Path(9))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

type fakeStore struct {
	err error
}

func (f fakeStore) SetMoviePoster(context.Context, int64, string) error { return f.err }
