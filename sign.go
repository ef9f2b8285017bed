package cpor

import (
	"crypto/ed25519"
	"fmt"
)

// Sign produces the 64-byte Ed25519 signature over the canonical
// encoding of msg.
func Sign(msg Message, privateKey ed25519.PrivateKey) ([]byte, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d",
			ErrSigning, ed25519.PrivateKeySize, len(privateKey))
	}
	encoded, err := Encode(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrSigning, err)
	}
	return ed25519.Sign(privateKey, encoded), nil
}

// Verify re-encodes msg canonically and checks signature against it.
// A wrong, truncated or otherwise mismatching signature yields (false,
// nil); an error is returned only when the inputs themselves are
// malformed, i.e. a public key of the wrong length or a message that
// cannot be encoded.
func Verify(msg Message, signature []byte, publicKey ed25519.PublicKey) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: public key must be %d bytes, got %d",
			ErrSigning, ed25519.PublicKeySize, len(publicKey))
	}
	encoded, err := Encode(msg)
	if err != nil {
		return false, fmt.Errorf("%w: encode: %v", ErrSigning, err)
	}
	return ed25519.Verify(publicKey, encoded, signature), nil
}
