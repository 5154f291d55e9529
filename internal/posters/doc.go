// Package posters stores the poster images received for movies.
//
// Images are decoded (JPEG, PNG, GIF and WebP), shrunk to fit a square
// bound and written as JPEG under the poster directory, one file per movie
// named after its id. The movie's poster path is updated afterwards.
package posters
