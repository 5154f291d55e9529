package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/KDE/macaw-movies/internal/database"
	"github.com/KDE/macaw-movies/internal/filesystem"
	"github.com/KDE/macaw-movies/internal/logging"
)

// Store is the part of the database the scanner writes through.
type Store interface {
	WatchPathsByImported(ctx context.Context, imported bool) ([]database.WatchPath, error)
	AddMovie(ctx context.Context, m *database.Movie) (int64, error)
	SetWatchPathImported(ctx context.Context, id int64, imported bool) error
}

// ScanResult summarises one import run. Added counts files accepted by the
// store, already known ones included.
type ScanResult struct {
	Paths    int
	Files    int
	Added    int
	Skipped  int
	Duration time.Duration
}

// Scanner imports the video files found under watch paths.
type Scanner struct {
	store Store
	retry filesystem.RetryConfig
}

// NewScanner creates a scanner writing to store.
func NewScanner(store Store) *Scanner {
	return &Scanner{store: store, retry: filesystem.DefaultRetryConfig()}
}

// ImportPending walks every watch path whose imported flag is unset, adds
// each video file found as a movie and marks the path imported. Files
// already stored are absorbed by the store. A path that cannot be read is
// logged and left unimported so the next run retries it.
func (s *Scanner) ImportPending(ctx context.Context) (ScanResult, error) {
	start := time.Now()
	var result ScanResult

	paths, err := s.store.WatchPathsByImported(ctx, false)
	if err != nil {
		return result, fmt.Errorf("failed to list watch paths: %w", err)
	}

	for _, wp := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		files, err := s.importPath(ctx, wp, &result)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			logging.Warn("Skipping watch path %s: %v", wp.Path, err)
			continue
		}

		if err := s.store.SetWatchPathImported(ctx, wp.ID, true); err != nil {
			return result, fmt.Errorf("failed to mark watch path %s imported: %w", wp.Path, err)
		}
		result.Paths++
		logging.Info("Imported %s: %d video files", wp.Path, files)
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (s *Scanner) importPath(ctx context.Context, wp database.WatchPath, result *ScanResult) (int, error) {
	info, err := filesystem.StatWithRetry(wp.Path, s.retry)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", wp.Path)
	}

	files := 0
	err = filepath.WalkDir(wp.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == wp.Path {
				return err
			}
			logging.Debug("Cannot read %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path != wp.Path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsVideo(d.Name()) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(wp.Path, path)
		if err != nil {
			return err
		}

		files++
		result.Files++
		m := &database.Movie{
			Title:        TitleFromFile(d.Name()),
			PathID:       wp.ID,
			RelativePath: rel,
			Suffix:       strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Name())), "."),
			Show:         wp.Type == database.PathTypeShows,
		}
		if _, err := s.store.AddMovie(ctx, m); err != nil {
			logging.Warn("Failed to add %s: %v", path, err)
			result.Skipped++
			return nil
		}
		result.Added++
		return nil
	})
	return files, err
}
