package database

import (
	"context"

	"github.com/KDE/macaw-movies/internal/metrics"
)

// GetStats counts the library contents for the metrics collector.
func (d *Database) GetStats() (metrics.Stats, error) {
	db, err := d.conn()
	if err != nil {
		return metrics.Stats{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var s metrics.Stats
	err = db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM movies WHERE COALESCE(show, 0) = 0),
			(SELECT COUNT(*) FROM show),
			(SELECT COUNT(*) FROM episodes),
			(SELECT COUNT(*) FROM people),
			(SELECT COUNT(*) FROM tags),
			(SELECT COUNT(*) FROM playlists),
			(SELECT COUNT(*) FROM path_list),
			(SELECT COUNT(*) FROM movies WHERE COALESCE(imported, 0) = 0)
	`).Scan(&s.Movies, &s.Shows, &s.Episodes, &s.People, &s.Tags, &s.Playlists, &s.WatchPaths, &s.PendingMetadata)
	if err != nil {
		return metrics.Stats{}, err
	}
	return s, nil
}
