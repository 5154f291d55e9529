package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/KDE/macaw-movies/internal/database"
	"github.com/KDE/macaw-movies/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

const healthTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status         string `json:"status"`
	Ready          bool   `json:"ready"`
	Version        string `json:"version"`
	Uptime         string `json:"uptime"`
	SchemaVersion  int    `json:"schemaVersion"`
	MigrationState string `json:"migrationState"`
	Scanning       bool   `json:"scanning"`
	Error          string `json:"error,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Stats summary
	Movies     int `json:"movies"`
	WatchPaths int `json:"watchPaths"`
}

// ready reports whether the store answers and carries the schema this
// build writes.
func (h *Handlers) ready(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	version, err := h.db.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}
	if version != database.CurrentVersion {
		return version, errSchemaBehind
	}
	return version, nil
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	version, err := h.ready(r.Context())

	response := HealthResponse{
		Status:         statusHealthy,
		Ready:          err == nil,
		Version:        startup.Version,
		Uptime:         time.Since(h.started).Round(time.Second).String(),
		SchemaVersion:  version,
		MigrationState: h.db.State(),
		Scanning:       h.isScanning(),
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	statusCode := http.StatusOK
	if err != nil {
		response.Status = statusDegraded
		response.Error = err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	if stats, err := h.db.GetStats(); err == nil {
		response.Movies = stats.Movies
		response.WatchPaths = stats.WatchPaths
	}

	respondJSON(w, statusCode, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the store is open at the current
// schema version.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ready(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
