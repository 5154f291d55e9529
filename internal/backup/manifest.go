package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// Record describes one snapshot of the store.
type Record struct {
	Seq           int64     `json:"seq"`
	ID            string    `json:"id"`
	File          string    `json:"file"`
	CreatedAt     time.Time `json:"createdAt"`
	SchemaVersion int       `json:"schemaVersion"`
	Size          int64     `json:"size"`
	Checksum      string    `json:"checksum"`
}

type manifest struct {
	Backups []Record `json:"backups"`
}

func (m *manifest) nextSeq() int64 {
	var max int64
	for _, r := range m.Backups {
		if r.Seq > max {
			max = r.Seq
		}
	}
	return max + 1
}

func (m *manifest) sort() {
	sort.Slice(m.Backups, func(i, j int) bool {
		return m.Backups[i].Seq < m.Backups[j].Seq
	})
}

// readManifest loads the manifest. A missing file is an empty manifest.
func readManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse backup manifest %s: %w", path, err)
	}
	m.sort()
	return &m, nil
}

// writeManifest replaces the manifest atomically.
func writeManifest(path string, m *manifest) error {
	m.sort()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create manifest temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write backup manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close backup manifest: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace backup manifest: %w", err)
	}
	return nil
}
