package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrEmptyPayload is returned when asked to address a zero-length payload.
var ErrEmptyPayload = errors.New("payload is empty")

// ContentKey derives the content address of a payload: the SHA-256 digest of
// the raw bytes, hex-encoded (64 characters). Identical bytes always produce
// the same key.
func ContentKey(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// StoragePathFor derives the cold-tier object path for a content key using a
// two-character shard prefix. The path is a pure function of the key so it can
// always be re-derived; the metadata row only caches it.
func StoragePathFor(key string) string {
	if len(key) < 2 {
		return "images/" + key
	}
	return "images/" + key[:2] + "/" + key
}
