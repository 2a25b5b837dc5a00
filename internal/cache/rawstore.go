package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// RawStore keeps downloaded source files under readable names and records
// each one in the manifest. Entries never expire; callers refresh explicitly.
type RawStore struct {
	dir      string
	manifest *Manifest
}

// NewRawStore creates a store rooted at dir. manifest may be nil.
func NewRawStore(dir string, manifest *Manifest) *RawStore {
	return &RawStore{dir: dir, manifest: manifest}
}

var unsafeKeyChars = strings.NewReplacer("/", "_", ":", "_", "?", "_", "\\", "_")

// Path returns the local file for key
func (s *RawStore) Path(key string) string {
	return filepath.Join(s.dir, unsafeKeyChars.Replace(key))
}

// Has reports whether key is stored
func (s *RawStore) Has(key string) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}

// Load returns the stored bytes for key
func (s *RawStore) Load(key string) ([]byte, bool) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Store writes content and records its provenance
func (s *RawStore) Store(key string, content []byte, sourceURL, notes string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}
	path := s.Path(key)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if s.manifest != nil {
		if err := s.manifest.Record(key, sourceURL, path, notes); err != nil {
			return path, err
		}
	}
	log.WithFields(log.Fields{"key": key, "path": path}).Debug("stored raw file")
	return path, nil
}
