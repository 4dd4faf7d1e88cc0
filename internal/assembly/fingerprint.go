package assembly

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
)

// Fingerprint is the SHA-256 digest of an illustration's bytes. Two lines
// share a scene exactly when their resolved images have equal fingerprints.
type Fingerprint [sha256.Size]byte

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// IsZero reports whether f is unset.
func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }

// FingerprintFile hashes the file at path.
func FingerprintFile(path string) (Fingerprint, error) {
	var fp Fingerprint
	f, err := os.Open(path)
	if err != nil {
		return fp, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fp, fmt.Errorf("hash %s: %w", path, err)
	}
	copy(fp[:], h.Sum(nil))
	return fp, nil
}

// FingerprintCache memoises fingerprints keyed by path, size and mtime, so
// a reused fallback image is hashed once per run.
type FingerprintCache struct {
	c *cache.Cache
}

// NewFingerprintCache creates a cache whose entries expire after ttl.
func NewFingerprintCache(ttl time.Duration) *FingerprintCache {
	return &FingerprintCache{c: cache.New(ttl, 2*ttl)}
}

// Get returns the fingerprint of path, hashing it on a miss.
func (fc *FingerprintCache) Get(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if v, ok := fc.c.Get(key); ok {
		return v.(Fingerprint), nil
	}
	fp, err := FingerprintFile(path)
	if err != nil {
		return Fingerprint{}, err
	}
	fc.c.Set(key, fp, cache.DefaultExpiration)
	return fp, nil
}

// Len returns the number of cached fingerprints.
func (fc *FingerprintCache) Len() int { return fc.c.ItemCount() }
