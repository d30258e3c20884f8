// Package sha256 computes content digests and the file names derived from them.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hasher implements harvest.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalName is the content-addressed file name for a digest.
func CanonicalName(digest string) string {
	return digest + ".jpeg"
}

// DuplicateName keys a colliding copy by digest plus fetch timestamp so both
// copies are retained.
func DuplicateName(digest, timestamp string) string {
	return fmt.Sprintf("%s_%s.jpeg", digest, timestamp)
}
