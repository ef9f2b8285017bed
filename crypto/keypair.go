package crypto

import (
	"crypto/ed25519"
	"fmt"
)

// StorageKind says where a key pair's private half lives.
type StorageKind string

const (
	StorageSoftware StorageKind = "software"
	StorageTPM      StorageKind = "tpm"
)

func (k StorageKind) valid() bool {
	return k == StorageSoftware || k == StorageTPM
}

// KeyPair is one Ed25519 identity held by the Manager. For hardware-backed
// keys the private half is an opaque handle owned by the secure store;
// only the public key is materialized here.
type KeyPair struct {
	KeyID     string
	PublicKey ed25519.PublicKey

	// Storage is the storage kind actually used, which may differ from
	// the kind requested at generation time if the hardware store was
	// unavailable and fallback was permitted.
	Storage StorageKind

	private ed25519.PrivateKey
}

// PrivateKey returns the private key material for software-stored keys.
// Hardware-backed keys fail with ErrKeyStorage: their private material
// never leaves the device.
func (k *KeyPair) PrivateKey() (ed25519.PrivateKey, error) {
	if k.Storage == StorageTPM {
		return nil, fmt.Errorf("%w: cannot export private key from hardware storage", ErrKeyStorage)
	}
	return k.private, nil
}
