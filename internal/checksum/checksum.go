// Package checksum fingerprints encoded note files. The fingerprint is used
// as the ETag of a note and checked against If-Match before a save.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Match reports whether expected is the checksum of data. Surrounding ETag
// quotes and a weak "W/" prefix are ignored; hex case is not significant.
func Match(data []byte, expected string) bool {
	expected = strings.TrimPrefix(strings.TrimSpace(expected), "W/")
	expected = strings.ToLower(strings.Trim(expected, `"`))
	return subtle.ConstantTimeCompare([]byte(Sum(data)), []byte(expected)) == 1
}
