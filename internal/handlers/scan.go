package handlers

import (
	"context"
	"net/http"

	"github.com/KDE/macaw-movies/internal/library"
	"github.com/KDE/macaw-movies/internal/logging"
)

// ScanResponse reports the state of the watch path importer
type ScanResponse struct {
	Status   string              `json:"status"`
	LastScan *library.ScanResult `json:"lastScan,omitempty"`
}

func (h *Handlers) isScanning() bool {
	h.scanMu.Lock()
	defer h.scanMu.Unlock()
	return h.scanning
}

// StartScan imports pending watch paths in the background under ctx. It
// returns false without starting anything when an import is already running.
func (h *Handlers) StartScan(ctx context.Context) bool {
	h.scanMu.Lock()
	defer h.scanMu.Unlock()
	return h.startScanLocked(ctx)
}

func (h *Handlers) startScanLocked(ctx context.Context) bool {
	if h.scanning {
		return false
	}
	h.scanning = true
	h.scanWG.Add(1)
	go h.runScan(ctx)
	return true
}

// WaitScan blocks until the running import, if any, has returned.
func (h *Handlers) WaitScan() {
	h.scanWG.Wait()
}

// TriggerScan starts importing pending watch paths in the background.
// Only one import runs at a time.
func (h *Handlers) TriggerScan(w http.ResponseWriter, _ *http.Request) {
	h.scanMu.Lock()
	last := h.lastScan
	started := h.startScanLocked(h.ctx)
	h.scanMu.Unlock()

	if !started {
		respondJSON(w, http.StatusConflict, ScanResponse{Status: "already_scanning", LastScan: last})
		return
	}
	respondJSON(w, http.StatusAccepted, ScanResponse{Status: "started", LastScan: last})
}

func (h *Handlers) runScan(ctx context.Context) {
	defer h.scanWG.Done()

	result, err := h.scanner.ImportPending(ctx)
	if err != nil {
		logging.Error("Scan failed: %v", err)
	} else {
		logging.Info("Scan complete: %d paths, %d files, %d added, %d skipped in %v",
			result.Paths, result.Files, result.Added, result.Skipped, result.Duration)
	}

	h.scanMu.Lock()
	h.lastScan = &result
	h.scanning = false
	h.scanMu.Unlock()
}
