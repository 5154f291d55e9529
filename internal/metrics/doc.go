// Package metrics provides Prometheus instrumentation for Macaw Movies.
//
// All metrics are prefixed with "macaw_" and registered with the default
// registry through promauto.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, normalized path and status
//   - HTTPRequestDuration: Histogram of request duration
//   - HTTPRequestsInFlight: Gauge of requests being served
//
// ## Database Metrics
//
//   - DBQueryTotal: Counter of queries by operation and status
//   - DBQueryDuration: Histogram of query duration by operation
//   - DBSizeBytes: Gauge of the database file size
//
// ## Schema Metrics
//
//   - SchemaVersion: Gauge of the installed schema version
//   - MigrationsTotal: Counter of migration batches by outcome
//   - MigrationDuration: Histogram of batch duration
//   - MigrationStepsTotal: Counter of steps by target version and outcome
//
// ## Backup Metrics
//
//   - BackupsTotal, BackupSizeBytes, BackupRestoresTotal
//
// ## Filesystem Metrics
//
//   - FilesystemRetries: Counter of retried stat/open calls by final outcome
//   - FilesystemStaleErrors: Counter of stale NFS file handle errors
//   - FilesystemRetryDuration: Histogram of retried call duration
//
// ## Library Metrics
//
//   - LibraryItems: Gauge of entity counts by kind, filled by [Collector]
//   - PostersStoredTotal: Counter of poster cache writes
//   - AppInfo: Build information, set once by the server
//
// # Collector
//
// [Collector] periodically gathers statistics from a [StatsProvider]:
//
//	collector := metrics.NewCollector(provider, dbPath, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Migration rollbacks over the last day:
//
//	increase(macaw_migrations_total{status="rolled_back"}[1d])
//
// Database query latency by operation:
//
//	histogram_quantile(0.95, sum(rate(macaw_db_query_duration_seconds_bucket[5m])) by (le, operation))
package metrics
