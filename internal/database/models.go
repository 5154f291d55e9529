package database

import (
	"fmt"
	"strings"
	"time"
)

// PathType says what kind of media a watch path holds. It is a bit set.
type PathType int

const (
	PathTypeMovies PathType = 1
	PathTypeShows  PathType = 2
	PathTypeBoth            = PathTypeMovies | PathTypeShows
)

// HasMovies reports whether the path is scanned for movies.
func (t PathType) HasMovies() bool { return t&PathTypeMovies != 0 }

// HasShows reports whether the path is scanned for show episodes.
func (t PathType) HasShows() bool { return t&PathTypeShows != 0 }

// Valid reports whether t is one of the three known path types.
func (t PathType) Valid() bool { return t >= PathTypeMovies && t <= PathTypeBoth }

func (t PathType) String() string {
	switch t {
	case PathTypeMovies:
		return "movies"
	case PathTypeShows:
		return "shows"
	case PathTypeBoth:
		return "both"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParsePathType converts "movies", "shows" or "both" to a PathType.
func ParsePathType(s string) (PathType, error) {
	switch s {
	case "movies":
		return PathTypeMovies, nil
	case "shows":
		return PathTypeShows, nil
	case "both":
		return PathTypeBoth, nil
	default:
		return 0, fmt.Errorf("unknown path type %q (want movies, shows or both)", s)
	}
}

// Role is the kind of link between a person and a movie.
type Role int

const (
	RoleDirector Role = 1
	RoleProducer Role = 2
	RoleActor    Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleDirector:
		return "director"
	case RoleProducer:
		return "producer"
	case RoleActor:
		return "actor"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r >= RoleDirector && r <= RoleActor }

// ParseRole parses a role name as produced by Role.String.
func ParseRole(s string) (Role, error) {
	for _, r := range []Role{RoleDirector, RoleProducer, RoleActor} {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Movie is a media file in the library. Show is set when the file is the
// container of a show episode.
type Movie struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	OriginalTitle string        `json:"originalTitle,omitempty"`
	ReleaseDate   time.Time     `json:"releaseDate,omitempty"`
	Country       string        `json:"country,omitempty"`
	Duration      time.Duration `json:"duration,omitempty"`
	Synopsis      string        `json:"synopsis,omitempty"`
	PathID        int64         `json:"pathId"`
	RelativePath  string        `json:"relativePath"`
	AbsolutePath  string        `json:"absolutePath"`
	PosterPath    string        `json:"posterPath,omitempty"`
	Colored       bool          `json:"colored"`
	Format        string        `json:"format,omitempty"`
	Suffix        string        `json:"suffix,omitempty"`
	Rank          int           `json:"rank"`
	Imported      bool          `json:"imported"`
	TMDBID        int64         `json:"tmdbId,omitempty"`
	Show          bool          `json:"show"`
	Tags          []Tag         `json:"tags,omitempty"`
	People        []Person      `json:"people,omitempty"`
}

// PeopleWithRole returns the movie's people linked with the given role.
func (m *Movie) PeopleWithRole(role Role) []Person {
	var out []Person
	for _, p := range m.People {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// Person is a director, producer or actor. Role is only set when the person
// was loaded through a movie link.
type Person struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Birthday  time.Time `json:"birthday,omitempty"`
	Biography string    `json:"biography,omitempty"`
	Imported  bool      `json:"imported"`
	TMDBID    int64     `json:"tmdbId,omitempty"`
	Role      Role      `json:"role,omitempty"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Playlist struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	Movies    []Movie   `json:"movies,omitempty"`
}

// IsToWatch reports whether p is the reserved "To Watch" playlist.
func (p *Playlist) IsToWatch() bool { return p.ID == ToWatchPlaylistID }

type Show struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Finished bool   `json:"finished"`
}

// Episode wraps the movie holding the episode file and the show it belongs to.
type Episode struct {
	ID     int64 `json:"id"`
	Number int   `json:"number"`
	Season int   `json:"season"`
	Show   Show  `json:"show"`
	Movie  Movie `json:"movie"`
}

// WatchPath is a directory registered as a source of media files.
type WatchPath struct {
	ID       int64    `json:"id"`
	Path     string   `json:"path"`
	Type     PathType `json:"type"`
	Imported bool     `json:"imported"`
}
