package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

// =========================================================================
// GenerateResetToken TESTS
// =========================================================================

func TestGenerateResetToken_RawIsHexOf20Bytes(t *testing.T) {
	raw, _, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}

	// 20 random bytes hex-encode to 40 characters
	if len(raw) != 40 {
		t.Errorf("raw token length = %d, want 40", len(raw))
	}
	if _, err := hex.DecodeString(raw); err != nil {
		t.Errorf("raw token is not valid hex: %v", err)
	}
}

func TestGenerateResetToken_HashMatchesSHA256OfRaw(t *testing.T) {
	raw, hash, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}

	sum := sha256.Sum256([]byte(raw))
	want := hex.EncodeToString(sum[:])

	if hash != want {
		t.Errorf("hash = %q, want SHA-256(raw) = %q", hash, want)
	}
}

func TestGenerateResetToken_TokensAreUnique(t *testing.T) {
	raw1, _, _ := GenerateResetToken()
	raw2, _, _ := GenerateResetToken()

	if raw1 == raw2 {
		t.Error("GenerateResetToken() produced the same token twice")
	}
}

// =========================================================================
// HashResetToken TESTS
// =========================================================================

func TestHashResetToken_ReDerivesGeneratedHash(t *testing.T) {
	// Redeeming a reset works by re-deriving the lookup key from the raw
	// token the user presents — the two paths must always agree.
	raw, hash, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}

	if got := HashResetToken(raw); got != hash {
		t.Errorf("HashResetToken(raw) = %q, want %q", got, hash)
	}
}

func TestHashResetToken_Deterministic(t *testing.T) {
	if HashResetToken("abc") != HashResetToken("abc") {
		t.Error("HashResetToken() is not deterministic")
	}
	if HashResetToken("abc") == HashResetToken("abd") {
		t.Error("HashResetToken() collides on different inputs")
	}
}
