// Package database provides the SQLite store of the movie library.
//
// It handles:
//   - Opening, closing and deleting the store file
//   - Versioned schema creation and upgrades, with a file snapshot taken
//     before every upgrade and restored when a step fails
//   - Mapping query rows into movies, episodes, shows, people, tags,
//     playlists and watch paths, relations included
//   - Typed create, update, delete and link operations
//
// The store is driven through a single connection with foreign keys
// enforced. Movie files are stored relative to the watch path they were
// found in; the absolute path is resolved when a movie is loaded.
package database
