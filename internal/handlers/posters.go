package handlers

import (
	"errors"
	"image"
	"io"
	"net/http"
	"os"

	"github.com/KDE/macaw-movies/internal/filesystem"
	"github.com/KDE/macaw-movies/internal/logging"
)

// maxPosterUpload bounds the size of an uploaded poster image.
const maxPosterUpload = 20 << 20

// GetPoster serves the stored poster of a movie
func (h *Handlers) GetPoster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid movie id", http.StatusBadRequest)
		return
	}
	movie, err := h.db.GetMovie(r.Context(), id)
	if err != nil {
		writeStoreError(w, "movie", err)
		return
	}
	if movie.PosterPath == "" {
		writeJSONError(w, "movie has no poster", http.StatusNotFound)
		return
	}

	f, err := filesystem.OpenWithRetry(movie.PosterPath, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, "poster file is missing", http.StatusNotFound)
			return
		}
		logging.Error("failed to open poster %s: %v", movie.PosterPath, err)
		writeJSONError(w, "Failed to open poster", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSONError(w, "Failed to open poster", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// PutPoster stores the request body as the poster of a movie
func (h *Handlers) PutPoster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid movie id", http.StatusBadRequest)
		return
	}
	if _, err := h.db.GetMovie(r.Context(), id); err != nil {
		writeStoreError(w, "movie", err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxPosterUpload)
	path, err := h.posters.Store(r.Context(), id, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSONError(w, "poster is too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, image.ErrFormat), errors.Is(err, io.ErrUnexpectedEOF):
			writeJSONError(w, "body is not a supported image", http.StatusBadRequest)
		default:
			logging.Error("failed to store poster of movie %d: %v", id, err)
			writeJSONError(w, "Failed to store poster", http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"posterPath": path})
}

// DeletePoster removes a movie's poster file and clears its poster path
func (h *Handlers) DeletePoster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid movie id", http.StatusBadRequest)
		return
	}
	if err := h.db.SetMoviePoster(r.Context(), id, ""); err != nil {
		writeStoreError(w, "movie", err)
		return
	}
	if err := h.posters.Remove(id); err != nil {
		logging.Warn("failed to remove poster of movie %d: %v", id, err)
	}
	w.WriteHeader(http.StatusNoContent)
}
