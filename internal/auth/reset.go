package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// resetTokenBytes is the entropy of a reset token: 20 random bytes
// (160 bits), hex-encoded to a 40-character string.
const resetTokenBytes = 20

// ResetTokenDuration is how long a password-reset token stays valid.
const ResetTokenDuration = time.Hour

// GenerateResetToken creates a one-time password-reset token.
//
// It returns both the raw token and its SHA-256 hex digest. Only the digest
// is ever persisted; the raw value is handed to the account owner exactly
// once (by email, or directly in the response in development mode). To
// redeem it, the caller presents the raw token and the server re-derives
// the digest with HashResetToken for the lookup.
//
// WHY HASH A RANDOM TOKEN AT ALL?
// If the database leaks, stored digests are useless to an attacker — unlike
// the raw token, a digest cannot be presented to the reset endpoint. This
// mirrors how password hashes protect passwords, except a fast hash is fine
// here because the input is 160 bits of randomness, not a guessable word.
func GenerateResetToken() (raw, hash string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: generating reset token: %w", err)
	}

	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

// HashResetToken returns the SHA-256 hex digest of a raw reset token —
// the value stored in, and looked up from, the credential store.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
