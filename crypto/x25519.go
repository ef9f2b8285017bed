package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// sessionKeyInfo provides HKDF domain separation for CPOR session keys.
var sessionKeyInfo = []byte("cpor-session-key")

// GenerateEphemeralKeyPair creates a one-shot X25519 key pair for the
// registration flow. The public half travels in a ConnectResponse's
// ephemeral_pubkey field.
func GenerateEphemeralKeyPair() (publicKey, privateKey []byte, err error) {
	privateKey = make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(entropy(), privateKey); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	publicKey, err = curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return publicKey, privateKey, nil
}

// DeriveSessionSecret computes the 32-byte shared session key from an
// ephemeral private key and the peer's ephemeral public key, via X25519
// and HKDF-SHA256. The raw shared secret is wiped before returning.
func DeriveSessionSecret(privateKey, peerPublicKey []byte) ([]byte, error) {
	shared, err := curve25519.X25519(privateKey, peerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: X25519 exchange: %v", ErrKeyGeneration, err)
	}
	defer zeroBytes(shared)

	key := make([]byte, SessionKeySize)
	r := hkdf.New(sha256.New, shared, nil, sessionKeyInfo)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("%w: key derivation: %v", ErrKeyGeneration, err)
	}
	return key, nil
}
