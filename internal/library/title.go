package library

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// titleSeparators split a raw title into words.
const titleSeparators = "_- ,()[].!?#"

var fold = cases.Fold()

// CleanTitle turns a raw title or file name into a search term. The input
// is split on separators, words holding anything but letters and
// apostrophes are dropped (years, resolutions, codec tags) and the rest is
// joined with single spaces.
func CleanTitle(title string) string {
	words := strings.FieldsFunc(norm.NFC.String(title), func(r rune) bool {
		return strings.ContainsRune(titleSeparators, r)
	})

	kept := words[:0]
	for _, w := range words {
		if isWord(w) {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func isWord(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) && r != '\'' {
			return false
		}
	}
	return true
}

// SameTitle reports whether two titles clean to the same words, ignoring case.
func SameTitle(a, b string) bool {
	return fold.String(CleanTitle(a)) == fold.String(CleanTitle(b))
}

// TitleFromFile derives a movie title from a file name. The raw base name
// is kept when cleaning leaves nothing.
func TitleFromFile(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if t := CleanTitle(base); t != "" {
		return t
	}
	return base
}

// Candidate is a title returned by the external catalog.
type Candidate struct {
	ID    int64
	Title string
}

// MatchCandidates narrows catalog results down to the ones whose title is
// the same as the stored one. A single result is accepted as is. When
// nothing matches every candidate is returned so the user can choose.
func MatchCandidates(stored string, candidates []Candidate) []Candidate {
	if len(candidates) <= 1 {
		return candidates
	}
	var accurate []Candidate
	for _, c := range candidates {
		if SameTitle(c.Title, stored) {
			accurate = append(accurate, c)
		}
	}
	if len(accurate) == 0 {
		return candidates
	}
	return accurate
}
