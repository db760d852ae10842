package mirrorlai

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText computes the SHA-256 hash of text. The text is hashed exactly as
// given: strings that differ only in surrounding whitespace hash differently.
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// CacheKey generates a shared-cache key from a text hash and target language.
func CacheKey(hash, targetLang string) string {
	return hash + ":" + targetLang
}

// CacheKeyExtended also separates entries by source language and backend.
// Use this when several backends share one cache.
func CacheKeyExtended(hash, sourceLang, targetLang, backend string) string {
	return hash + ":" + sourceLang + ":" + targetLang + ":" + backend
}
