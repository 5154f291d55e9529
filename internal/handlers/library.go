package handlers

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/KDE/macaw-movies/internal/database"
	"github.com/KDE/macaw-movies/internal/logging"
	"github.com/KDE/macaw-movies/internal/playlist"
)

// WatchPathRequest registers a directory as a source of media files.
type WatchPathRequest struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// GetStats returns library entity counts
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.db.GetStats()
	if err != nil {
		logging.Error("failed to get stats: %v", err)
		writeJSONError(w, "Failed to get stats", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ListMovies lists movies. The optional query parameters narrow the list:
// q matches titles, pending=true keeps movies without metadata and
// shows=true matches episode files instead of movies (with q only).
func (h *Handlers) ListMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	shows, _ := strconv.ParseBool(query.Get("shows"))
	pending, _ := strconv.ParseBool(query.Get("pending"))

	var movies []database.Movie
	var err error
	switch {
	case query.Get("q") != "":
		movies, err = h.db.MatchMovies(r.Context(), query.Get("q"), shows)
	case pending:
		movies, err = h.db.PendingMovies(r.Context())
	default:
		movies, err = h.db.Movies(r.Context())
	}
	if err != nil {
		writeStoreError(w, "movies", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(movies))
}

// GetMovie returns one movie with its tags and people
func (h *Handlers) GetMovie(w http.ResponseWriter, r *http.Request) {
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
	respondJSON(w, http.StatusOK, movie)
}

// ListMoviesByTag lists the movies carrying a tag
func (h *Handlers) ListMoviesByTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid tag id", http.StatusBadRequest)
		return
	}
	if _, err := h.db.GetTag(r.Context(), id); err != nil {
		writeStoreError(w, "tag", err)
		return
	}
	movies, err := h.db.MoviesByTag(r.Context(), id)
	if err != nil {
		writeStoreError(w, "movies", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(movies))
}

// ListWatchPaths returns all watch paths
func (h *Handlers) ListWatchPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.db.WatchPaths(r.Context())
	if err != nil {
		writeStoreError(w, "watch paths", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(paths))
}

// AddWatchPath registers a watch path. Registering a known path returns the
// existing one.
func (h *Handlers) AddWatchPath(w http.ResponseWriter, r *http.Request) {
	var req WatchPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		writeJSONError(w, "Path is required", http.StatusBadRequest)
		return
	}
	typ := database.PathTypeMovies
	if req.Type != "" {
		var err error
		if typ, err = database.ParsePathType(req.Type); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	id, err := h.db.AddWatchPath(r.Context(), req.Path, typ)
	if err != nil {
		logging.Error("failed to add watch path %s: %v", req.Path, err)
		writeJSONError(w, "Failed to add watch path", http.StatusInternalServerError)
		return
	}
	wp, err := h.db.WatchPath(r.Context(), id)
	if err != nil {
		writeStoreError(w, "watch path", err)
		return
	}
	respondJSON(w, http.StatusCreated, wp)
}

// DeleteWatchPath removes a watch path with the movies found under it
func (h *Handlers) DeleteWatchPath(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid watch path id", http.StatusBadRequest)
		return
	}
	removed, err := h.db.DeleteWatchPath(r.Context(), id)
	if err != nil {
		writeStoreError(w, "watch path", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"removedMovies": removed})
}

// ListTags returns all tags
func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.Tags(r.Context())
	if err != nil {
		writeStoreError(w, "tags", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(tags))
}

// ListPlaylists returns all playlists, the To Watch playlist first
func (h *Handlers) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.db.Playlists(r.Context())
	if err != nil {
		writeStoreError(w, "playlists", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(playlists))
}

// GetPlaylist returns one playlist with its movies
func (h *Handlers) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid playlist id", http.StatusBadRequest)
		return
	}
	playlist, err := h.db.GetPlaylist(r.Context(), id)
	if err != nil {
		writeStoreError(w, "playlist", err)
		return
	}
	respondJSON(w, http.StatusOK, playlist)
}

// ExportPlaylist returns a playlist as a WPL document
func (h *Handlers) ExportPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid playlist id", http.StatusBadRequest)
		return
	}
	p, err := h.db.GetPlaylist(r.Context(), id)
	if err != nil {
		writeStoreError(w, "playlist", err)
		return
	}

	var buf bytes.Buffer
	if err := playlist.WriteWPL(&buf, playlist.FromLibrary(p)); err != nil {
		logging.Error("failed to export playlist %d: %v", id, err)
		writeJSONError(w, "Failed to export playlist", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.ms-wpl")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": p.Name + ".wpl"}))
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.Debug("failed to write playlist export: %v", err)
	}
}

// ListPeople returns all people, or those credited with ?role=
func (h *Handlers) ListPeople(w http.ResponseWriter, r *http.Request) {
	var people []database.Person
	var err error
	if role := r.URL.Query().Get("role"); role != "" {
		parsed, perr := database.ParseRole(role)
		if perr != nil {
			writeJSONError(w, perr.Error(), http.StatusBadRequest)
			return
		}
		people, err = h.db.PeopleByRole(r.Context(), parsed)
	} else {
		people, err = h.db.People(r.Context())
	}
	if err != nil {
		writeStoreError(w, "people", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(people))
}

// ListShows returns all shows
func (h *Handlers) ListShows(w http.ResponseWriter, r *http.Request) {
	shows, err := h.db.Shows(r.Context())
	if err != nil {
		writeStoreError(w, "shows", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(shows))
}

// ListEpisodes returns the episodes of a show in season order
func (h *Handlers) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid show id", http.StatusBadRequest)
		return
	}
	if _, err := h.db.GetShow(r.Context(), id); err != nil {
		writeStoreError(w, "show", err)
		return
	}
	episodes, err := h.db.EpisodesByShow(r.Context(), id)
	if err != nil {
		writeStoreError(w, "episodes", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(episodes))
}
