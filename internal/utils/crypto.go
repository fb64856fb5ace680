package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// APIKeyPrefix marks every issued API key.
const APIKeyPrefix = "lume_"

// displayPrefixLen is how much of a key is kept for display.
const displayPrefixLen = len(APIKeyPrefix) + 8

// GenerateUniqueID creates a secure random hex string from length bytes.
func GenerateUniqueID(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateAPIKey returns a new secret of the form lume_<64 hex>.
func GenerateAPIKey() (string, error) {
	id, err := GenerateUniqueID(32)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + id, nil
}

// GenerateSecret returns a 64 hex character signing secret.
func GenerateSecret() (string, error) {
	return GenerateUniqueID(32)
}

// HashKey is the lookup form of an API key. Only this is persisted.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// KeyDisplayPrefix returns the leading characters shown in listings.
func KeyDisplayPrefix(key string) string {
	if len(key) <= displayPrefixLen {
		return key
	}
	return key[:displayPrefixLen]
}
