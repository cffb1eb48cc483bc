// Package cas names content by its BLAKE3 digest.
package cas

import (
	"encoding/hex"
	"regexp"

	"github.com/zeebo/blake3"
)

// digestPattern matches a lowercase 256-bit hex digest.
var digestPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Hash computes the hex BLAKE3-256 digest of data.
func Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashString is Hash for text.
func HashString(s string) string {
	return Hash([]byte(s))
}

// wellFormed reports whether digest is a lowercase hex digest.
func wellFormed(digest string) bool {
	return digestPattern.MatchString(digest)
}

// Verify reports whether data hashes to digest.
func Verify(data []byte, digest string) bool {
	return wellFormed(digest) && Hash(data) == digest
}
