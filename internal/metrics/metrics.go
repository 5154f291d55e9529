package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macaw_http_requests_total",
			Help: "Total number of HTTP requests served by the operational endpoint",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "macaw_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "macaw_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macaw_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "macaw_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "macaw_db_size_bytes",
			Help: "Size of the SQLite database file in bytes",
		},
	)
)

// Schema and migration metrics
var (
	SchemaVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "macaw_schema_version",
			Help: "Schema version currently installed in the store",
		},
	)

	MigrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macaw_migrations_total",
			Help: "Total number of migration batches by outcome",
		},
		[]string{"status"}, // "success", "rolled_back", "restore_failed"
	)

	MigrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "macaw_migration_duration_seconds",
			Help:    "Duration of a migration batch in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	MigrationStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macaw_migration_steps_total",
			Help: "Total number of migration steps executed by target version and outcome",
		},
		[]string{"version", "status"},
	)
)

// Backup metrics
var (
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macaw_backups_total",
			Help: "Total number of store snapshots taken",
		},
		[]string{"status"},
	)

	BackupSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "macaw_backup_size_bytes",
			Help: "Size of the most recent store snapshot in bytes",
		},
	)

	BackupRestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macaw_backup_restores_total",
			Help: "Total number of snapshot restores by outcome",
		},
		[]string{"status"},
	)
)

// Filesystem metrics
var (
	FilesystemRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macaw_filesystem_retries_total",
			Help: "Filesystem operations that needed a retry, by final outcome",
		},
		[]string{"operation", "status"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macaw_filesystem_stale_errors_total",
			Help: "Stale NFS file handle errors seen by filesystem operations",
		},
		[]string{"operation"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "macaw_filesystem_operation_duration_seconds",
			Help:    "Duration of retried filesystem operations in seconds, retries included",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation"},
	)
)

// Library metrics
var (
	LibraryItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "macaw_library_items",
			Help: "Number of library entities by kind",
		},
		[]string{"kind"},
	)

	PostersStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macaw_posters_stored_total",
			Help: "Total number of poster images written to the poster cache",
		},
		[]string{"status"},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "macaw_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
