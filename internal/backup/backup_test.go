package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, content string) (*Manager, string) {
	t.Helper()

	src := filepath.Join(t.TempDir(), "database.sqlite")
	require.NoError(t, os.WriteFile(src, []byte(content), 0o600))

	m := NewManager(src)
	clock := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return m, src
}

func TestCreate(t *testing.T) {
	m, src := newTestManager(t, "version 40")

	rec, err := m.Create(40)
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.Seq)
	assert.Equal(t, 40, rec.SchemaVersion)
	assert.Equal(t, int64(len("version 40")), rec.Size)
	assert.Len(t, rec.Checksum, 64)
	assert.True(t, strings.HasPrefix(rec.File, "database.sqlite_backup20261018_093001"), rec.File)

	parsed, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	data, err := os.ReadFile(m.Path(rec))
	require.NoError(t, err)
	assert.Equal(t, "version 40", string(data))

	_, err = os.Stat(src + ".backups.json")
	assert.NoError(t, err)
}

func TestCreateMissingSource(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing.sqlite"))

	_, err := m.Create(1)
	require.Error(t, err)

	list, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLatestUsesSequenceNotListingOrder(t *testing.T) {
	m, src := newTestManager(t, "first")

	first, err := m.Create(40)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(src, []byte("second"), 0o600))
	// Step the clock backwards so the newer snapshot sorts first by name.
	m.now = func() time.Time { return time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC) }
	second, err := m.Create(40)
	require.NoError(t, err)
	require.Less(t, second.File, first.File)

	latest, err := m.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.Seq, latest.Seq)
	assert.Equal(t, int64(2), latest.Seq)
}

func TestLatestSkipsMissingFiles(t *testing.T) {
	m, _ := newTestManager(t, "data")

	first, err := m.Create(40)
	require.NoError(t, err)
	second, err := m.Create(40)
	require.NoError(t, err)

	require.NoError(t, os.Remove(m.Path(second)))

	latest, err := m.Latest()
	require.NoError(t, err)
	assert.Equal(t, first.Seq, latest.Seq)
}

func TestLatestEmpty(t *testing.T) {
	m, _ := newTestManager(t, "data")

	_, err := m.Latest()
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestRestore(t *testing.T) {
	m, src := newTestManager(t, "before migration")

	rec, err := m.Create(40)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(src, []byte("half migrated"), 0o600))
	require.NoError(t, os.WriteFile(src+"-journal", []byte("stale"), 0o600))

	require.NoError(t, m.Restore(rec))

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "before migration", string(data))

	_, err = os.Stat(src + "-journal")
	assert.True(t, os.IsNotExist(err))

	// The snapshot itself is kept for later inspection.
	_, err = os.Stat(m.Path(rec))
	assert.NoError(t, err)
}

func TestRestoreChecksumMismatch(t *testing.T) {
	m, src := newTestManager(t, "original")

	rec, err := m.Create(40)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(m.Path(rec), []byte("tampered"), 0o600))
	require.NoError(t, os.WriteFile(src, []byte("live"), 0o600))

	err = m.Restore(rec)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	// The live file is untouched when verification fails.
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "live", string(data))
}

func TestPrune(t *testing.T) {
	m, _ := newTestManager(t, "data")

	var recs []Record
	for i := 0; i < 4; i++ {
		rec, err := m.Create(50)
		require.NoError(t, err)
		recs = append(recs, rec)
	}

	removed, err := m.Prune(1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, recs[3].Seq, list[0].Seq)

	for _, rec := range recs[:3] {
		_, err := os.Stat(m.Path(rec))
		assert.True(t, os.IsNotExist(err))
	}

	// Sequence numbers keep increasing after a prune.
	next, err := m.Create(50)
	require.NoError(t, err)
	assert.Equal(t, int64(5), next.Seq)
}

func TestPruneNegative(t *testing.T) {
	m, _ := newTestManager(t, "data")

	_, err := m.Prune(-1)
	assert.Error(t, err)
}

func TestCorruptManifest(t *testing.T) {
	m, src := newTestManager(t, "data")
	require.NoError(t, os.WriteFile(src+".backups.json", []byte("{not json"), 0o600))

	_, err := m.List()
	assert.Error(t, err)
}
