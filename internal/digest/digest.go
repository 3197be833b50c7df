// Package digest computes the content digests history.Store uses to decide
// whether a Module can be skipped on a re-run, grounded on sivchari/gomu's
// internal/analysis/filehash.go (a SHA-256 FileHasher over Go source files),
// generalized here from Go source text to bitcode files.
package digest

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Hasher computes SHA-256 content digests.
type Hasher struct{}

// New creates a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// HashFile returns the hex-encoded SHA-256 digest of the file at path.
func (h *Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// HashFiles returns the digest of every path, keyed by path. A failure to
// hash one path does not short-circuit the rest — the caller sees which
// paths failed by their entries being absent from the returned map.
func (h *Hasher) HashFiles(paths []string) map[string]string {
	digests := make(map[string]string, len(paths))

	for _, path := range paths {
		if d, err := h.HashFile(path); err == nil {
			digests[path] = d
		}
	}

	return digests
}
