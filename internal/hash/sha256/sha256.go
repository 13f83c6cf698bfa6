// Package sha256 fingerprints persisted page bodies for the crawl manifest.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Prefix tags digests so the manifest can hold other algorithms later.
const Prefix = "sha256:"

// Hasher implements crawler.Hasher.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns "sha256:<hex digest>" of body. Empty bodies hash like any other.
func (h *Hasher) Hash(body []byte) (string, error) {
	sum := sha256.Sum256(body)
	return Prefix + hex.EncodeToString(sum[:]), nil
}
