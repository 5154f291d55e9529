package library

import (
	"path/filepath"
	"strings"
)

// VideoExtensions maps the file extensions registered as movies.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
	".ogv":  true,
	".divx": true,
}

// IsVideo reports whether name has a known video extension, ignoring case.
func IsVideo(name string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(name))]
}
