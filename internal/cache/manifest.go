package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrHashMismatch means a recorded file changed on disk after download
var ErrHashMismatch = errors.New("file hash does not match manifest")

// ManifestEntry is the provenance of one downloaded file
type ManifestEntry struct {
	SourceURL         string `yaml:"source_url"`
	DownloadTimestamp string `yaml:"download_timestamp"`
	FileHash          string `yaml:"file_hash"`
	LocalPath         string `yaml:"local_path"`
	Notes             string `yaml:"notes"`
}

// Manifest is the data_manifest.yml provenance log. Every Record is
// flushed to disk immediately.
type Manifest struct {
	mu    sync.Mutex
	path  string
	now   func() time.Time
	Files map[string]ManifestEntry `yaml:"files"`
}

// LoadManifest reads the manifest at path, or starts an empty one if it does not exist
func LoadManifest(path string) (*Manifest, error) {
	m := &Manifest{path: path, now: time.Now, Files: make(map[string]ManifestEntry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Files == nil {
		m.Files = make(map[string]ManifestEntry)
	}
	return m, nil
}

// Path returns where the manifest is saved
func (m *Manifest) Path() string {
	return m.path
}

// Record hashes localPath and stores its provenance under key.
// A missing file is recorded with hash "N/A".
func (m *Manifest) Record(key, sourceURL, localPath, notes string) error {
	hash, err := hashFile(localPath)
	if errors.Is(err, os.ErrNotExist) {
		hash = "N/A"
	} else if err != nil {
		return fmt.Errorf("hash %s: %w", localPath, err)
	}

	m.mu.Lock()
	m.Files[key] = ManifestEntry{
		SourceURL:         sourceURL,
		DownloadTimestamp: m.now().UTC().Format(time.RFC3339),
		FileHash:          hash,
		LocalPath:         localPath,
		Notes:             notes,
	}
	m.mu.Unlock()

	if err := m.Save(); err != nil {
		return err
	}
	log.WithField("key", key).Debug("manifest: recorded")
	return nil
}

// Entry returns the recorded provenance for key
func (m *Manifest) Entry(key string) (ManifestEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Files[key]
	return e, ok
}

// Has reports whether key was recorded
func (m *Manifest) Has(key string) bool {
	_, ok := m.Entry(key)
	return ok
}

// Save writes the manifest to its path
func (m *Manifest) Save() error {
	m.mu.Lock()
	data, err := yaml.Marshal(m)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Verify rehashes the file recorded under key and compares it to the manifest
func (m *Manifest) Verify(key string) error {
	entry, ok := m.Entry(key)
	if !ok {
		return fmt.Errorf("verify %q: not in manifest", key)
	}
	hash, err := hashFile(entry.LocalPath)
	if err != nil {
		return fmt.Errorf("verify %q: %w", key, err)
	}
	if hash != entry.FileHash {
		return fmt.Errorf("verify %q: %w", key, ErrHashMismatch)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
