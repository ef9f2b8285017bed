package crypto

import (
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxNonceSize bounds GenerateNonce requests.
	MaxNonceSize = 1024

	// SessionKeySize is the length of keys from GenerateSessionKey.
	SessionKeySize = 32
)

// DefaultKeyIDPrefix is used by DeriveKeyID when no prefix is given.
const DefaultKeyIDPrefix = "cpor"

// GenerateNonce returns size cryptographically secure random bytes,
// 1 <= size <= 1024.
func GenerateNonce(size int) ([]byte, error) {
	if size < 1 || size > MaxNonceSize {
		return nil, errors.New("crypto: nonce size must be between 1 and 1024 bytes")
	}
	nonce := make([]byte, size)
	if _, err := io.ReadFull(entropy(), nonce); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// GenerateSessionKey returns a fresh 32-byte symmetric session key.
func GenerateSessionKey() ([]byte, error) {
	return GenerateNonce(SessionKeySize)
}

// ConstantTimeCompare reports whether a and b are equal without leaking
// timing information about where they differ.
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// DeriveKeyID derives a deterministic key identifier from a 32-byte
// Ed25519 public key: the prefix, an underscore, and the first 8 bytes
// of the key hex-encoded. An empty prefix selects DefaultKeyIDPrefix.
func DeriveKeyID(publicKey []byte, prefix string) (string, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", fmt.Errorf("crypto: public key must be %d bytes, got %d",
			ed25519.PublicKeySize, len(publicKey))
	}
	if prefix == "" {
		prefix = DefaultKeyIDPrefix
	}
	return prefix + "_" + hex.EncodeToString(publicKey[:8]), nil
}

// ValidEd25519PublicKey reports whether key has the length of an
// Ed25519 public key.
func ValidEd25519PublicKey(key []byte) bool {
	return len(key) == ed25519.PublicKeySize
}

// ValidEd25519PrivateKey reports whether key is an Ed25519 private key
// in either the 32-byte seed or 64-byte expanded form.
func ValidEd25519PrivateKey(key []byte) bool {
	return len(key) == ed25519.SeedSize || len(key) == ed25519.PrivateKeySize
}

// zeroBytes wipes sensitive material after use.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
