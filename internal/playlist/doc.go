// Package playlist reads and writes playlist files.
//
// Currently supported formats:
//   - WPL (Windows Playlist): XML-based playlist format used by Windows Media Player
//
// Library playlists are exported with the absolute path of each movie file,
// in playlist order. On import, media sources written with Windows
// separators are normalised to forward slashes before they are matched
// against the library.
package playlist
