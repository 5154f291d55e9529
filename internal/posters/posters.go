package posters

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"github.com/KDE/macaw-movies/internal/logging"
	"github.com/KDE/macaw-movies/internal/metrics"
)

const (
	// DefaultMaxSize is the bound applied to poster width and height.
	DefaultMaxSize = 500

	jpegQuality = 85
)

// MovieStore records where a movie's poster lives.
type MovieStore interface {
	SetMoviePoster(ctx context.Context, id int64, posterPath string) error
}

// Cache writes poster files and links them to their movie.
type Cache struct {
	dir     string
	maxSize int
	store   MovieStore
}

// NewCache creates a poster cache in dir. A maxSize below one selects
// DefaultMaxSize.
func NewCache(dir string, maxSize int, store MovieStore) (*Cache, error) {
	if maxSize < 1 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create poster directory: %w", err)
	}
	return &Cache{dir: dir, maxSize: maxSize, store: store}, nil
}

// Path returns the file a movie's poster is stored in.
func (c *Cache) Path(movieID int64) string {
	return filepath.Join(c.dir, strconv.FormatInt(movieID, 10)+".jpg")
}

// Store decodes an image from r, fits it within the size bound and saves it
// as the poster of movieID. It returns the poster path.
func (c *Cache) Store(ctx context.Context, movieID int64, r io.Reader) (path string, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.PostersStoredTotal.WithLabelValues(status).Inc()
	}()

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode poster of movie %d: %w", movieID, err)
	}
	img = c.fit(img)

	path = c.Path(movieID)
	if err := writeJPEG(img, path); err != nil {
		return "", fmt.Errorf("failed to write poster of movie %d: %w", movieID, err)
	}

	if err := c.store.SetMoviePoster(ctx, movieID, path); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logging.Warn("failed to remove orphan poster %s: %v", path, rmErr)
		}
		return "", err
	}

	b := img.Bounds()
	logging.Debug("Stored poster of movie %d (%dx%d) at %s", movieID, b.Dx(), b.Dy(), path)
	return path, nil
}

// writeJPEG encodes img to a temporary file beside path, then renames it.
func writeJPEG(img image.Image, path string) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".poster-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	err = imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
	}
	return err
}

// fit downscales img so neither side exceeds the size bound.
func (c *Cache) fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= c.maxSize && b.Dy() <= c.maxSize {
		return img
	}
	return imaging.Fit(img, c.maxSize, c.maxSize, imaging.Lanczos)
}

// Remove deletes a movie's poster file. A missing file is not an error.
func (c *Cache) Remove(movieID int64) error {
	err := os.Remove(c.Path(movieID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
