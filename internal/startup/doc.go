// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// Configuration is resolved by [NewViper] and [LoadConfig] with viper, in
// increasing precedence: built-in defaults, config.yaml in the configuration
// directory, MACAW_* environment variables, then command line flags bound by
// the CLI.
//
//   - data_dir: application data directory holding the database, its
//     snapshots and the poster cache (default: $XDG_DATA_HOME/macaw-movies)
//   - database_file: database file name inside data_dir (default: database.sqlite)
//   - log_level: debug, info, warn, error (default: info)
//   - listen: address of the operational HTTP server (default: :8080)
//   - metrics_port: Prometheus metrics server port (default: 9090)
//   - poster_max_size: bound on poster width and height in pixels (default: 500)
//   - backup_keep: snapshots kept by "backup prune" (default: 5)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
//   - [LogConfig]: banner, system information and resolved configuration
//   - [LogDatabaseInit]: database initialization timing and schema version
//   - [LogHTTPRoutes]: registered HTTP routes (debug level)
//   - [LogServerStarted]: server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: graceful shutdown
package startup
