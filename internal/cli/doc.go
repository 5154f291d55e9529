// Package cli implements the macaw command line.
//
// Every command resolves its configuration with the startup package and,
// apart from version, opens the library store, which creates or upgrades
// the schema before the command runs. Listing commands print aligned tables,
// or JSON with --json.
//
//	macaw status                   schema version and migration state
//	macaw migrate                  create or upgrade the schema
//	macaw paths add|list|rm|imported
//	macaw scan                     import pending watch paths
//	macaw movies list|pending|search|show
//	macaw tags add|list|rename|rm|link|unlink
//	macaw playlists list|add|rm|movie
//	macaw player [path]            media player path
//	macaw backup list|create|restore|prune
//	macaw reset                    start over with an empty store
//	macaw serve                    operational HTTP API and metrics
package cli
