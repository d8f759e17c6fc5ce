package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// TableKey returns prefix + ":" + the first 16 hex chars of sha256(absPath).
// Hashing keeps keys short and free of separator characters.
func TableKey(prefix, absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return prefix + ":" + hex.EncodeToString(sum[:8])
}
