// Package handlers provides the HTTP handlers of the operational endpoint.
//
// It includes handlers for:
//   - Health, liveness and readiness probes backed by the schema version
//   - Version and build information
//   - Library statistics and read access to movies, people, tags,
//     playlists, shows and watch paths
//   - Watch path registration and background imports
//   - Poster upload, download and removal
package handlers
