package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRouter serves the Prometheus registry on /metrics. It is mounted on
// its own port, apart from the operational API.
func (h *Handlers) MetricsRouter() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// Router builds the operational router.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/scan", h.TriggerScan).Methods("POST")

	api.HandleFunc("/movies", h.ListMovies).Methods("GET")
	api.HandleFunc("/movies/{id:[0-9]+}", h.GetMovie).Methods("GET")
	api.HandleFunc("/movies/{id:[0-9]+}/poster", h.GetPoster).Methods("GET")
	api.HandleFunc("/movies/{id:[0-9]+}/poster", h.PutPoster).Methods("PUT")
	api.HandleFunc("/movies/{id:[0-9]+}/poster", h.DeletePoster).Methods("DELETE")

	api.HandleFunc("/paths", h.ListWatchPaths).Methods("GET")
	api.HandleFunc("/paths", h.AddWatchPath).Methods("POST")
	api.HandleFunc("/paths/{id:[0-9]+}", h.DeleteWatchPath).Methods("DELETE")

	api.HandleFunc("/tags", h.ListTags).Methods("GET")
	api.HandleFunc("/tags/{id:[0-9]+}/movies", h.ListMoviesByTag).Methods("GET")
	api.HandleFunc("/playlists", h.ListPlaylists).Methods("GET")
	api.HandleFunc("/playlists/{id:[0-9]+}", h.GetPlaylist).Methods("GET")
	api.HandleFunc("/playlists/{id:[0-9]+}/wpl", h.ExportPlaylist).Methods("GET")
	api.HandleFunc("/people", h.ListPeople).Methods("GET")
	api.HandleFunc("/shows", h.ListShows).Methods("GET")
	api.HandleFunc("/shows/{id:[0-9]+}/episodes", h.ListEpisodes).Methods("GET")

	return r
}
