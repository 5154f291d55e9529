package backup

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/KDE/macaw-movies/internal/logging"
	"github.com/KDE/macaw-movies/internal/metrics"
)

// timestampLayout matches the historical "_backupyyyyMMdd_HHmmss" suffix.
const timestampLayout = "20060102_150405"

var (
	// ErrNoBackup is returned when the manifest holds no usable snapshot.
	ErrNoBackup = errors.New("no backup available")
	// ErrChecksumMismatch is returned when a snapshot no longer matches its recorded checksum.
	ErrChecksumMismatch = errors.New("backup checksum mismatch")
)

// sidecars are the SQLite companion files removed together with the live file.
var sidecars = []string{"-journal", "-wal", "-shm"}

// Manager takes and restores full-file snapshots of a single database file.
// Snapshots live next to the database and are tracked by a JSON manifest
// with a strictly increasing sequence number.
type Manager struct {
	mu           sync.Mutex
	source       string
	dir          string
	manifestPath string
	now          func() time.Time
}

// NewManager creates a Manager for the database file at source.
func NewManager(source string) *Manager {
	return &Manager{
		source:       source,
		dir:          filepath.Dir(source),
		manifestPath: source + ".backups.json",
		now:          time.Now,
	}
}

// Source returns the live database path.
func (m *Manager) Source() string {
	return m.source
}

// Path returns the absolute path of a snapshot file.
func (m *Manager) Path(rec Record) string {
	return filepath.Join(m.dir, rec.File)
}

// Create copies the live database into a new snapshot and records it.
// The caller must ensure no write transaction is in flight.
func (m *Manager) Create(schemaVersion int) (rec Record, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.BackupsTotal.WithLabelValues(status).Inc()
	}()

	man, err := readManifest(m.manifestPath)
	if err != nil {
		return Record{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("failed to generate backup id: %w", err)
	}

	now := m.now()
	rec = Record{
		Seq:           man.nextSeq(),
		ID:            id.String(),
		CreatedAt:     now.UTC(),
		SchemaVersion: schemaVersion,
	}
	rec.File = filepath.Base(m.source) + "_backup" + now.Format(timestampLayout) + "_" + strconv.FormatInt(rec.Seq, 10)

	size, sum, err := copyFile(m.source, m.Path(rec))
	if err != nil {
		_ = os.Remove(m.Path(rec))
		return Record{}, fmt.Errorf("failed to snapshot %s: %w", m.source, err)
	}
	rec.Size = size
	rec.Checksum = sum

	man.Backups = append(man.Backups, rec)
	if err := writeManifest(m.manifestPath, man); err != nil {
		_ = os.Remove(m.Path(rec))
		return Record{}, err
	}

	metrics.BackupSizeBytes.Set(float64(size))
	logging.Info("Database backup #%d written to %s (%d bytes)", rec.Seq, m.Path(rec), size)
	return rec, nil
}

// List returns all recorded snapshots ordered by sequence number.
func (m *Manager) List() ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	man, err := readManifest(m.manifestPath)
	if err != nil {
		return nil, err
	}
	return man.Backups, nil
}

// Latest returns the snapshot with the highest sequence number whose file
// is still present on disk.
func (m *Manager) Latest() (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	man, err := readManifest(m.manifestPath)
	if err != nil {
		return Record{}, err
	}

	for i := len(man.Backups) - 1; i >= 0; i-- {
		rec := man.Backups[i]
		if _, err := os.Stat(m.Path(rec)); err == nil {
			return rec, nil
		}
		logging.Warn("Backup #%d listed in manifest but %s is missing", rec.Seq, rec.File)
	}
	return Record{}, ErrNoBackup
}

// Restore replaces the live database with the given snapshot. The database
// connection must be closed beforehand.
func (m *Manager) Restore(rec Record) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.BackupRestoresTotal.WithLabelValues(status).Inc()
	}()

	src := m.Path(rec)
	sum, err := checksumFile(src)
	if err != nil {
		return fmt.Errorf("failed to read backup %s: %w", src, err)
	}
	if rec.Checksum != "" && sum != rec.Checksum {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, rec.File)
	}

	for _, suffix := range append([]string{""}, sidecars...) {
		if err := os.Remove(m.source + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", m.source+suffix, err)
		}
	}

	tmp := m.source + ".restore"
	if _, _, err := copyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to copy backup into place: %w", err)
	}
	if err := os.Rename(tmp, m.source); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move backup into place: %w", err)
	}

	logging.Info("Database restored from backup #%d (%s)", rec.Seq, rec.File)
	return nil
}

// Prune removes all but the newest keep snapshots and returns how many were removed.
func (m *Manager) Prune(keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative, got %d", keep)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	man, err := readManifest(m.manifestPath)
	if err != nil {
		return 0, err
	}
	if len(man.Backups) <= keep {
		return 0, nil
	}

	cut := len(man.Backups) - keep
	removed := man.Backups[:cut]
	man.Backups = append([]Record(nil), man.Backups[cut:]...)

	if err := writeManifest(m.manifestPath, man); err != nil {
		return 0, err
	}

	for _, rec := range removed {
		if err := os.Remove(m.Path(rec)); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Failed to remove pruned backup %s: %v", rec.File, err)
		}
	}
	return len(removed), nil
}

// copyFile copies src to dst, syncs dst and returns its size and blake2b-256 checksum.
func copyFile(src, dst string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, "", err
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		_ = out.Close()
		return 0, "", err
	}

	n, err := io.Copy(io.MultiWriter(out, h), in)
	if err != nil {
		_ = out.Close()
		return 0, "", err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return 0, "", err
	}
	if err := out.Close(); err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
