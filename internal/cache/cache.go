// Package cache stores downloaded payloads in memory and on disk, and keeps
// the provenance manifest of every raw file a run depends on.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// KeyPrefix namespaces cache keys. Bump the version when payload layout changes.
const KeyPrefix = "banklab:v1:"

// Cache is a byte store with per-entry expiry
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a source URL and optional qualifiers
func Key(url string, qualifiers ...string) string {
	h := sha256.New()
	h.Write([]byte(url))
	if len(qualifiers) > 0 {
		h.Write([]byte{0})
		h.Write([]byte(strings.Join(qualifiers, "\x00")))
	}
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex sha256 of data
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
