// Command macaw manages the library store of Macaw-Movies.
//
// It creates and upgrades the SQLite schema, imports the video files found
// under registered watch paths, manages tags, playlists and snapshots, and
// serves the library over HTTP with health probes and Prometheus metrics.
// Run "macaw help" for the command list.
package main

import "github.com/KDE/macaw-movies/internal/cli"

func main() {
	cli.Execute()
}
