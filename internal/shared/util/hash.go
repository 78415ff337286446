package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes returns the hex sha256 of data, used to correlate uploads in logs.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
