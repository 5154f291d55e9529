package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KDE/macaw-movies/internal/database"
	"github.com/KDE/macaw-movies/internal/library"
	"github.com/KDE/macaw-movies/internal/playlist"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func table(w io.Writer, fn func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fn(tw)
	return tw.Flush()
}

func newPathsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Manage watch paths",
	}

	var typeName string
	add := &cobra.Command{
		Use:   "add <dir>",
		Short: "Register a directory as a source of media files",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			typ, err := database.ParsePathType(typeName)
			if err != nil {
				return err
			}
			id, err := db.AddWatchPath(cmd.Context(), args[0], typ)
			if err != nil {
				return err
			}
			wp, err := db.WatchPath(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), wp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Watch path %d: %s (%s)\n", wp.ID, wp.Path, wp.Type)
				return err
			})
		}),
	}
	add.Flags().StringVar(&typeName, "type", "movies", "media held by the directory: movies, shows or both")

	list := &cobra.Command{
		Use:   "list",
		Short: "List watch paths",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			paths, err := db.WatchPaths(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), paths, func(w io.Writer) error {
				return table(w, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "ID\tTYPE\tIMPORTED\tPATH")
					for _, wp := range paths {
						fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", wp.ID, wp.Type, wp.Imported, wp.Path)
					}
				})
			})
		}),
	}

	remove := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a watch path and the movies found under it",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			removed, err := db.DeleteWatchPath(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), map[string]int64{"removedMovies": removed}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Removed watch path %d and %d movies\n", id, removed)
				return err
			})
		}),
	}

	var notImported bool
	imported := &cobra.Command{
		Use:   "imported <id>",
		Short: "Mark a watch path imported, or pending with --unset",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return db.SetWatchPathImported(cmd.Context(), id, !notImported)
		}),
	}
	imported.Flags().BoolVar(&notImported, "unset", false, "mark the path pending so the next scan imports it again")

	cmd.AddCommand(add, list, remove, imported)
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Import the video files of watch paths not yet imported",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			result, err := library.NewScanner(db).ImportPending(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Imported %d watch paths: %d files, %d added, %d skipped in %v\n",
					result.Paths, result.Files, result.Added, result.Skipped, result.Duration.Round(1e6))
				return err
			})
		}),
	}
}

func printMovies(a *app, w io.Writer, movies []database.Movie) error {
	return a.emit(w, movies, func(w io.Writer) error {
		return table(w, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tTITLE\tIMPORTED\tFILE")
			for _, m := range movies {
				fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", m.ID, m.Title, m.Imported, m.AbsolutePath)
			}
		})
	})
}

func newMoviesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movies",
		Short: "Query movies",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List movies by title",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			movies, err := db.Movies(cmd.Context())
			if err != nil {
				return err
			}
			return printMovies(a, cmd.OutOrStdout(), movies)
		}),
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List movies whose metadata has not been fetched",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			movies, err := db.PendingMovies(cmd.Context())
			if err != nil {
				return err
			}
			return printMovies(a, cmd.OutOrStdout(), movies)
		}),
	}

	var shows bool
	search := &cobra.Command{
		Use:   "search <text>",
		Short: "Find movies whose title, original title or file contains text",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			movies, err := db.MatchMovies(cmd.Context(), args[0], shows)
			if err != nil {
				return err
			}
			return printMovies(a, cmd.OutOrStdout(), movies)
		}),
	}
	search.Flags().BoolVar(&shows, "shows", false, "search episode files instead of movies")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a movie with its tags and people",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := db.GetMovie(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), m, func(w io.Writer) error {
				return table(w, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "ID:\t%d\n", m.ID)
					fmt.Fprintf(tw, "Title:\t%s\n", m.Title)
					if m.OriginalTitle != "" {
						fmt.Fprintf(tw, "Original title:\t%s\n", m.OriginalTitle)
					}
					fmt.Fprintf(tw, "File:\t%s\n", m.AbsolutePath)
					if !m.ReleaseDate.IsZero() {
						fmt.Fprintf(tw, "Released:\t%s\n", m.ReleaseDate.Format("2006-01-02"))
					}
					if m.PosterPath != "" {
						fmt.Fprintf(tw, "Poster:\t%s\n", m.PosterPath)
					}
					for _, t := range m.Tags {
						fmt.Fprintf(tw, "Tag:\t%s\n", t.Name)
					}
					for _, p := range m.People {
						fmt.Fprintf(tw, "%s:\t%s\n", p.Role, p.Name)
					}
				})
			})
		}),
	}

	cmd.AddCommand(list, pending, search, show)
	return cmd
}

func newTagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tags",
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag, or print the id of an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			id, err := db.CreateTag(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tag %d: %s\n", id, args[0])
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			tags, err := db.Tags(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), tags, func(w io.Writer) error {
				return table(w, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "ID\tNAME")
					for _, t := range tags {
						fmt.Fprintf(tw, "%d\t%s\n", t.ID, t.Name)
					}
				})
			})
		}),
	}

	rename := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(2),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return db.RenameTag(cmd.Context(), id, args[1])
		}),
	}

	remove := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a tag and unlink it from every movie",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return db.DeleteTag(cmd.Context(), id)
		}),
	}

	link := &cobra.Command{
		Use:   "link <movie-id> <tag-id>",
		Short: "Tag a movie",
		Args:  cobra.ExactArgs(2),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			movieID, err := parseID(args[0])
			if err != nil {
				return err
			}
			tagID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return db.LinkTag(cmd.Context(), movieID, tagID)
		}),
	}

	unlink := &cobra.Command{
		Use:   "unlink <movie-id> <tag-id>",
		Short: "Remove a tag from a movie",
		Args:  cobra.ExactArgs(2),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			movieID, err := parseID(args[0])
			if err != nil {
				return err
			}
			tagID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return db.UnlinkTag(cmd.Context(), movieID, tagID)
		}),
	}

	cmd.AddCommand(add, list, rename, remove, link, unlink)
	return cmd
}

func newPlaylistsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlists",
		Short: "Manage playlists",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List playlists with their movies",
		Args:  cobra.NoArgs,
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, _ []string) error {
			playlists, err := db.Playlists(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), playlists, func(w io.Writer) error {
				return table(w, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "ID\tNAME\tRATING\tMOVIES")
					for _, p := range playlists {
						fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", p.ID, p.Name, p.Rating, len(p.Movies))
					}
				})
			})
		}),
	}

	var rating int
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a playlist, or print the id of an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			id, err := db.AddPlaylist(cmd.Context(), args[0], rating)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Playlist %d: %s\n", id, args[0])
			return nil
		}),
	}
	add.Flags().IntVar(&rating, "rating", 0, "playlist rating")

	remove := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return db.DeletePlaylist(cmd.Context(), id)
		}),
	}

	var drop bool
	movie := &cobra.Command{
		Use:   "movie <playlist-id> <movie-id>",
		Short: "Add a movie to a playlist, or remove it with --remove",
		Args:  cobra.ExactArgs(2),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			playlistID, err := parseID(args[0])
			if err != nil {
				return err
			}
			movieID, err := parseID(args[1])
			if err != nil {
				return err
			}
			if drop {
				return db.RemoveFromPlaylist(cmd.Context(), playlistID, movieID)
			}
			return db.AddToPlaylist(cmd.Context(), playlistID, movieID)
		}),
	}
	movie.Flags().BoolVar(&drop, "remove", false, "remove the movie instead of adding it")

	export := &cobra.Command{
		Use:   "export <id> [file.wpl]",
		Short: "Write a playlist as a WPL file, or to standard output",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := db.GetPlaylist(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return playlist.WriteWPL(cmd.OutOrStdout(), playlist.FromLibrary(p))
			}
			return writeFile(args[1], func(w io.Writer) error { return playlist.WriteWPL(w, playlist.FromLibrary(p)) })
		}),
	}

	importCmd := &cobra.Command{
		Use:   "import <file.wpl>",
		Short: "Create a playlist from a WPL file",
		Long: `Import creates a playlist named after the WPL title, or adds to the
existing playlist of that name, and appends the library movies whose file
matches an entry. Entries not found in the library are reported and
skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			wpl, err := playlist.ReadWPL(f, args[0])
			if err != nil {
				return err
			}
			added, missing, err := importPlaylist(cmd.Context(), db, wpl)
			if err != nil {
				return err
			}
			for _, file := range missing {
				fmt.Fprintf(cmd.ErrOrStderr(), "Not in library: %s\n", file)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Playlist %q: %d movies added, %d not found\n", wpl.Name, added, len(missing))
			return nil
		}),
	}

	cmd.AddCommand(list, add, remove, movie, export, importCmd)
	return cmd
}

// importPlaylist adds the movies listed in wpl to the playlist of the same
// name, creating it when needed.
func importPlaylist(ctx context.Context, db *database.Database, wpl *playlist.Playlist) (added int, missing []string, err error) {
	movies, err := db.Movies(ctx)
	if err != nil {
		return 0, nil, err
	}
	byFile := make(map[string]int64, len(movies))
	for _, m := range movies {
		if m.AbsolutePath != "" {
			byFile[m.AbsolutePath] = m.ID
		}
	}

	id, err := db.AddPlaylist(ctx, wpl.Name, 0)
	if err != nil {
		return 0, nil, err
	}
	for _, file := range wpl.Files {
		movieID, ok := byFile[file]
		if !ok {
			missing = append(missing, file)
			continue
		}
		if err := db.AddToPlaylist(ctx, id, movieID); err != nil {
			return added, missing, err
		}
		added++
	}
	return added, missing, nil
}

// writeFile writes through a temporary file renamed into place.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func newPlayerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player [path]",
		Short: "Print or set the media player used to open movies",
		Long: `Player prints the configured media player path. Given an argument it
stores that path instead; an empty argument clears it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.withDB(func(cmd *cobra.Command, db *database.Database, args []string) error {
			if len(args) == 1 {
				return db.SetMediaPlayerPath(cmd.Context(), args[0])
			}
			player, err := db.MediaPlayerPath(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), player)
			return nil
		}),
	}
	return cmd
}
