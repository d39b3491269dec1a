package model

import (
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// NewKey returns a fresh API key: a version-4 random UUID (122 random bits).
func NewKey() string {
	return uuid.NewString()
}

// HashKey returns the hex BLAKE2b-256 digest stored in place of a raw key.
func HashKey(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
