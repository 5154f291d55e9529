package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/KDE/macaw-movies/internal/database"
	"github.com/KDE/macaw-movies/internal/library"
	"github.com/KDE/macaw-movies/internal/posters"
)

type Handlers struct {
	db      *database.Database
	posters *posters.Cache
	scanner *library.Scanner
	started time.Time

	// ctx bounds background work started by requests.
	ctx context.Context

	scanMu   sync.Mutex
	scanning bool
	lastScan *library.ScanResult
	scanWG   sync.WaitGroup
}

func New(db *database.Database, cache *posters.Cache, scanner *library.Scanner) *Handlers {
	return &Handlers{
		db:      db,
		posters: cache,
		scanner: scanner,
		started: time.Now(),
		ctx:     context.Background(),
	}
}

// SetContext sets the context background imports run under. Cancelling it
// stops a running import between files.
func (h *Handlers) SetContext(ctx context.Context) {
	h.scanMu.Lock()
	defer h.scanMu.Unlock()
	h.ctx = ctx
}
