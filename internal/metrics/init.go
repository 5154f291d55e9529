package metrics

// LibraryKinds lists the label values used by LibraryItems.
var LibraryKinds = []string{"movies", "shows", "episodes", "people", "tags", "playlists", "watch_paths", "pending_metadata"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, op := range []string{"open", "schema_version", "create_all", "get_movie", "query_movies",
		"add_movie", "update_movie", "delete_movie", "create_tag", "link_tag", "link_person",
		"link_playlist", "add_watch_path", "delete_watch_path", "set_media_player"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, status := range []string{"success", "rolled_back", "restore_failed"} {
		MigrationsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "error"} {
		BackupsTotal.WithLabelValues(status)
		BackupRestoresTotal.WithLabelValues(status)
		PostersStoredTotal.WithLabelValues(status)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetries.WithLabelValues(op, "success")
		FilesystemRetries.WithLabelValues(op, "failure")
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetryDuration.WithLabelValues(op)
	}

	for _, kind := range LibraryKinds {
		LibraryItems.WithLabelValues(kind)
	}
}
