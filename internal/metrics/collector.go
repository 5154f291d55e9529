package metrics

import (
	"os"
	"time"

	"github.com/KDE/macaw-movies/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() (Stats, error)
}

// Stats holds the current library statistics
type Stats struct {
	Movies          int
	Shows           int
	Episodes        int
	People          int
	Tags            int
	Playlists       int
	WatchPaths      int
	PendingMetadata int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector. dbPath may be empty, in which
// case the database size gauge is left untouched.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.dbPath != "" {
		if info, err := os.Stat(c.dbPath); err == nil {
			DBSizeBytes.Set(float64(info.Size()))
		}
	}

	if c.statsProvider == nil {
		return
	}

	stats, err := c.statsProvider.GetStats()
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	LibraryItems.WithLabelValues("movies").Set(float64(stats.Movies))
	LibraryItems.WithLabelValues("shows").Set(float64(stats.Shows))
	LibraryItems.WithLabelValues("episodes").Set(float64(stats.Episodes))
	LibraryItems.WithLabelValues("people").Set(float64(stats.People))
	LibraryItems.WithLabelValues("tags").Set(float64(stats.Tags))
	LibraryItems.WithLabelValues("playlists").Set(float64(stats.Playlists))
	LibraryItems.WithLabelValues("watch_paths").Set(float64(stats.WatchPaths))
	LibraryItems.WithLabelValues("pending_metadata").Set(float64(stats.PendingMetadata))

	logging.Debug("Metrics collected: movies=%d, shows=%d, people=%d, tags=%d",
		stats.Movies, stats.Shows, stats.People, stats.Tags)
}
