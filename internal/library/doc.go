// Package library feeds the movie store from the filesystem and prepares
// entries for the metadata fetcher.
//
// The scanner walks every watch path not yet imported and registers the
// video files it finds, one movie per file, relative to its watch path.
// Title helpers turn file names into search terms and compare the titles
// returned by the external catalog against the stored one.
package library
