package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KDE/macaw-movies/internal/backup"
)

// legacySchema is the layout written by v40 releases: absolute movie paths,
// a paths_list table and no show support.
var legacySchema = []string{
	`CREATE TABLE movies (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		title VARCHAR(255) NOT NULL,
		original_title VARCHAR(255),
		release_date VARCHAR(10),
		country VARCHAR(50),
		duration INTEGER,
		synopsis TEXT,
		file_path VARCHAR(255) NOT NULL UNIQUE ON CONFLICT IGNORE,
		poster_path VARCHAR(255),
		colored BOOLEAN,
		format VARCHAR(10),
		suffix VARCHAR(10),
		rank INTEGER,
		imported BOOLEAN
	)`,
	`CREATE TABLE people (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		name VARCHAR(200) NOT NULL,
		birthday VARCHAR(10),
		biography TEXT
	)`,
	moviesPeopleDDL,
	playlistsDDL,
	moviesPlaylistsDDL,
	tagsDDL,
	moviesTagsDDL,
	`CREATE TABLE paths_list (
		id INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
		movies_path VARCHAR(255) UNIQUE,
		imported BOOLEAN DEFAULT 0
	)`,
	`CREATE TABLE config (db_version INTEGER)`,
}

var legacyRows = []string{
	`INSERT INTO config VALUES (40)`,
	`INSERT INTO paths_list VALUES (1, '/media/movies', 1), (2, '/media/movies/kids', 0)`,
	`INSERT INTO movies (id, title, original_title, release_date, country, duration, synopsis,
		file_path, poster_path, colored, format, suffix, rank, imported) VALUES
		(1, 'Arrival', 'Arrival', '11/11/2016', 'USA', 8160000, 'Linguist meets heptapods',
			'/media/movies/arrival.mkv', '/p.jpg', 1, 'mkv', 'mkv', 4, 1),
		(2, 'Up', 'Up', '29/05/2009', 'USA', 5760000, NULL,
			'/media/movies/kids/up.mkv', NULL, 1, 'mkv', 'mkv', 0, 0),
		(3, 'Stray', NULL, NULL, NULL, NULL, NULL,
			'/elsewhere/stray.avi', NULL, 0, 'avi', 'avi', 0, 0)`,
	`INSERT INTO people VALUES (1, 'Denis Villeneuve', '03/10/1967', NULL)`,
	`INSERT INTO movies_people (id_movie, id_people, type) VALUES (1, 1, 1)`,
	`INSERT INTO tags VALUES (1, 'scifi')`,
	`INSERT INTO movies_tags (id_movie, id_tag) VALUES (1, 1)`,
	`INSERT INTO playlists VALUES (1, 'To Watch', 0, 0)`,
	`INSERT INTO movies_playlists (id_movie, id_playlist) VALUES (2, 1)`,
}

// writeLegacyStore creates a v40 store with sample rows and returns its path.
func writeLegacyStore(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "database.sqlite")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range append(append([]string{}, legacySchema...), legacyRows...) {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

// failingMigrations returns the default steps followed by one that always
// fails, so the batch aborts after every destructive change has run.
func failingMigrations() []Migration {
	migs := DefaultMigrations()
	migs[0].Steps = append(migs[0].Steps, Step{
		Name: "injected fault",
		Run: func(ctx context.Context, conn *sql.Conn) error {
			return errors.New("disk on fire")
		},
	})
	return migs
}

func TestMigrationRoundTrip(t *testing.T) {
	t.Parallel()

	path := writeLegacyStore(t)
	before := time.Now().Add(-time.Second)
	ctx := context.Background()

	db, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer db.Close()

	t.Run("stored version", func(t *testing.T) {
		version, err := db.SchemaVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, CurrentVersion, version)
		assert.Equal(t, StateUpgraded, db.State())
	})

	t.Run("backup taken before upgrade", func(t *testing.T) {
		backups, err := db.Backups().List()
		require.NoError(t, err)
		require.Len(t, backups, 1)
		assert.Equal(t, 40, backups[0].SchemaVersion)
		assert.False(t, backups[0].CreatedAt.Before(before.UTC()))

		_, err = os.Stat(db.Backups().Path(backups[0]))
		assert.NoError(t, err)
	})

	t.Run("watch paths carried over", func(t *testing.T) {
		paths, err := db.WatchPaths(ctx)
		require.NoError(t, err)
		assert.Equal(t, []WatchPath{
			{ID: 1, Path: "/media/movies", Type: PathTypeMovies, Imported: true},
			{ID: 2, Path: "/media/movies/kids", Type: PathTypeMovies, Imported: false},
		}, paths)

		conn, err := db.conn()
		require.NoError(t, err)
		exists, err := tableExists(ctx, conn, "paths_list")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("movies split by deepest watch path", func(t *testing.T) {
		arrival, err := db.GetMovie(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), arrival.PathID)
		assert.Equal(t, "arrival.mkv", arrival.RelativePath)
		assert.Equal(t, filepath.Join("/media/movies", "arrival.mkv"), arrival.AbsolutePath)
		assert.Equal(t, 4, arrival.Rank)
		assert.True(t, arrival.Imported)
		assert.Equal(t, int64(0), arrival.TMDBID)
		assert.False(t, arrival.Show)
		assert.Equal(t, []Tag{{ID: 1, Name: "scifi"}}, arrival.Tags)
		require.Len(t, arrival.People, 1)
		assert.Equal(t, "Denis Villeneuve", arrival.People[0].Name)
		assert.Equal(t, RoleDirector, arrival.People[0].Role)

		up, err := db.GetMovie(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), up.PathID)
		assert.Equal(t, "up.mkv", up.RelativePath)
	})

	t.Run("unmatched movie left unassigned", func(t *testing.T) {
		stray, err := db.GetMovie(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stray.PathID)
		assert.Equal(t, "/elsewhere/stray.avi", stray.RelativePath)
		assert.Equal(t, "/elsewhere/stray.avi", stray.AbsolutePath)
	})

	t.Run("people get new column defaults", func(t *testing.T) {
		p, err := db.GetPerson(ctx, 1)
		require.NoError(t, err)
		assert.False(t, p.Imported)
		assert.Equal(t, int64(0), p.TMDBID)
		assert.Equal(t, 1967, p.Birthday.Year())
	})

	t.Run("links survive the table rebuild", func(t *testing.T) {
		inList, err := db.IsToWatch(ctx, 2)
		require.NoError(t, err)
		assert.True(t, inList)

		conn, err := db.conn()
		require.NoError(t, err)
		assert.Equal(t, 0, countRows(t, conn, "SELECT COUNT(*) FROM pragma_foreign_key_check"))
	})

	t.Run("show tables created", func(t *testing.T) {
		conn, err := db.conn()
		require.NoError(t, err)
		for _, name := range []string{"show", "episodes"} {
			exists, err := tableExists(ctx, conn, name)
			require.NoError(t, err)
			assert.True(t, exists, name)
		}
	})

	t.Run("cascades work on the rebuilt table", func(t *testing.T) {
		require.NoError(t, db.DeleteMovie(ctx, 1))

		conn, err := db.conn()
		require.NoError(t, err)
		assert.Equal(t, 0, countRows(t, conn, "SELECT COUNT(*) FROM movies_tags WHERE id_movie = ?", 1))
		assert.Equal(t, 0, countRows(t, conn, "SELECT COUNT(*) FROM movies_people WHERE id_movie = ?", 1))
	})
}

func TestMigrationWithEmptyConfigRow(t *testing.T) {
	t.Parallel()

	path := writeLegacyStore(t)
	raw := rawDB(t, path)
	_, err := raw.Exec("DELETE FROM config")
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	ctx := context.Background()
	db, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer db.Close()

	version, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)

	backups, err := db.Backups().List()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Zero(t, backups[0].SchemaVersion)

	arrival, err := db.GetMovie(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), arrival.PathID)
	assert.Equal(t, "arrival.mkv", arrival.RelativePath)

	conn, err := db.conn()
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, conn, "SELECT COUNT(*) FROM config"))
}

func TestMigrationIsIdempotent(t *testing.T) {
	t.Parallel()

	path := writeLegacyStore(t)
	ctx := context.Background()

	db, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer db.Close()

	conn, err := db.conn()
	require.NoError(t, err)
	c, err := conn.Conn(ctx)
	require.NoError(t, err)
	defer c.Close()

	// Running every step again against the upgraded schema changes nothing.
	for _, step := range DefaultMigrations()[0].Steps {
		require.NoError(t, step.Run(ctx, c), step.Name)
	}
}

func TestMigrationFailureRollsBack(t *testing.T) {
	t.Parallel()

	path := writeLegacyStore(t)
	ctx := context.Background()

	db, err := Open(ctx, path, &Options{Migrations: failingMigrations()})
	require.Error(t, err)
	assert.Nil(t, db)
	assert.ErrorIs(t, err, ErrMigrationFailed)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 50, stepErr.Version)
	assert.Equal(t, "injected fault", stepErr.Step)

	raw := rawDB(t, path)
	version, ok, err := readVersion(ctx, raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 40, version)

	legacy, err := tableExists(ctx, raw, "paths_list")
	require.NoError(t, err)
	assert.True(t, legacy)

	hasPathID, err := columnExists(ctx, raw, "movies", "id_path")
	require.NoError(t, err)
	assert.False(t, hasPathID)

	var filePath string
	require.NoError(t, raw.QueryRow("SELECT file_path FROM movies WHERE id = 1").Scan(&filePath))
	assert.Equal(t, "/media/movies/arrival.mkv", filePath)

	// The live file is byte for byte the snapshot taken before the batch.
	backups, err := backup.NewManager(path).List()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	snapshot, err := os.ReadFile(filepath.Join(filepath.Dir(path), backups[0].File))
	require.NoError(t, err)
	live, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, snapshot, live)
}

func TestMigrationRetryAfterRollback(t *testing.T) {
	t.Parallel()

	path := writeLegacyStore(t)
	ctx := context.Background()

	d := &Database{
		dbPath:  path,
		opts:    Options{BusyTimeout: time.Second},
		backups: backup.NewManager(path),
	}
	d.migrator = newMigrator(d, failingMigrations())
	require.NoError(t, d.open(ctx))
	defer d.Close()

	err := d.Migrate(ctx)
	require.ErrorIs(t, err, ErrMigrationFailed)
	assert.Equal(t, StateRolledBack, d.State())

	// The store was reopened on the restored file.
	version, err := d.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, version)

	d.migrator.migrations = DefaultMigrations()
	require.NoError(t, d.Migrate(ctx))
	assert.Equal(t, StateUpgraded, d.State())

	version, err = d.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)

	backups, err := d.Backups().List()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Greater(t, backups[1].Seq, backups[0].Seq)
}

func TestMigrationOnFreshStoreBeyondCurrent(t *testing.T) {
	t.Parallel()

	migs := append(DefaultMigrations(), Migration{
		Version: CurrentVersion + 1,
		Steps: []Step{{
			Name: "add movies.watched",
			Run: func(ctx context.Context, conn *sql.Conn) error {
				_, err := addColumn(ctx, conn, "movies", "watched", "BOOLEAN DEFAULT 0")
				return err
			},
		}},
	})

	db, _ := setupTestDB(t, &Options{Migrations: migs})
	ctx := context.Background()

	version, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion+1, version)

	conn, err := db.conn()
	require.NoError(t, err)
	added, err := columnExists(ctx, conn, "movies", "watched")
	require.NoError(t, err)
	assert.True(t, added)

	backups, err := db.Backups().List()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, CurrentVersion, backups[0].SchemaVersion)
}

func TestSchemaTooNew(t *testing.T) {
	t.Parallel()

	db, path := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Close())

	raw := rawDB(t, path)
	_, err := raw.Exec("UPDATE config SET db_version = ?", CurrentVersion+10)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = Open(ctx, path, nil)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestStepErrorMatchesBoth(t *testing.T) {
	cause := errors.New("no such column")
	err := error(&StepError{Version: 50, Step: "x", Err: cause})

	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `v50`)
}
