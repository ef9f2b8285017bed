package crypto

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Manager owns the in-process software keystore and fronts a pluggable
// SecureStore for hardware-backed keys. All methods are safe for
// concurrent use; key operations are serialized by the internal lock.
type Manager struct {
	mu              sync.RWMutex
	softKeys        map[string]*KeyPair
	store           SecureStore
	requireHardware bool
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithSecureStore injects the hardware-backed store implementation.
// The default is an in-memory SoftStore stub.
func WithSecureStore(store SecureStore) Option {
	return func(m *Manager) { m.store = store }
}

// WithRequireHardware disables the software fallback: requesting a
// hardware-backed key while the store is unavailable becomes an error
// instead of a logged downgrade.
func WithRequireHardware() Option {
	return func(m *Manager) { m.requireHardware = true }
}

// NewManager creates a crypto manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		softKeys: make(map[string]*KeyPair),
		store:    NewSoftStore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	log.Info().
		Bool("hardware_available", m.store.IsAvailable()).
		Bool("require_hardware", m.requireHardware).
		Msg("Crypto manager initialized")
	return m
}

// HardwareAvailable reports whether the secure store is usable.
func (m *Manager) HardwareAvailable() bool {
	return m.store.IsAvailable()
}

// GenerateKeyPair creates a new Ed25519 identity under keyID.
//
// Requesting StorageTPM while the secure store is unavailable downgrades
// to software storage with a warning; the KeyPair's Storage field always
// reports the kind actually used, so callers with compliance requirements
// can check it (or construct the manager with WithRequireHardware).
func (m *Manager) GenerateKeyPair(ctx context.Context, keyID string, storage StorageKind) (*KeyPair, error) {
	if !storage.valid() {
		return nil, fmt.Errorf("%w: storage must be %q or %q", ErrKeyGeneration, StorageSoftware, StorageTPM)
	}

	if storage == StorageTPM {
		if m.store.IsAvailable() {
			return m.generateHardwareKeyPair(ctx, keyID)
		}
		if m.requireHardware {
			return nil, fmt.Errorf("%w: hardware key storage required but unavailable", ErrKeyGeneration)
		}
		log.Warn().
			Str("key_id", keyID).
			Msg("Hardware key store unavailable, falling back to software storage")
	}

	return m.generateSoftwareKeyPair(keyID)
}

func (m *Manager) generateSoftwareKeyPair(keyID string) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	kp := &KeyPair{
		KeyID:     keyID,
		PublicKey: pub,
		Storage:   StorageSoftware,
		private:   priv,
	}

	m.mu.Lock()
	m.softKeys[keyID] = kp
	m.mu.Unlock()

	log.Info().Str("key_id", keyID).Msg("Generated software key pair")
	return kp, nil
}

func (m *Manager) generateHardwareKeyPair(ctx context.Context, keyID string) (*KeyPair, error) {
	pub, err := m.store.GenerateKey(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	log.Info().Str("key_id", keyID).Msg("Generated hardware-backed key pair")
	return &KeyPair{
		KeyID:     keyID,
		PublicKey: ed25519.PublicKey(pub),
		Storage:   StorageTPM,
	}, nil
}

// GetKeyPair looks up a key by identifier, checking the software
// keystore first and then the secure store. Hardware-backed results
// carry the public key only.
func (m *Manager) GetKeyPair(ctx context.Context, keyID string) (*KeyPair, error) {
	m.mu.RLock()
	kp, ok := m.softKeys[keyID]
	m.mu.RUnlock()
	if ok {
		return kp, nil
	}

	if m.store.IsAvailable() {
		pub, err := m.store.PublicKey(ctx, keyID)
		if err == nil {
			return &KeyPair{
				KeyID:     keyID,
				PublicKey: ed25519.PublicKey(pub),
				Storage:   StorageTPM,
			}, nil
		}
		if !errors.Is(err, ErrKeyNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: key %q not found in any storage", ErrKeyStorage, keyID)
}

// SignData signs data with the key identified by keyID, returning the
// 64-byte Ed25519 signature. Software keys are tried first, then the
// secure store.
func (m *Manager) SignData(ctx context.Context, keyID string, data []byte) ([]byte, error) {
	m.mu.RLock()
	kp, ok := m.softKeys[keyID]
	m.mu.RUnlock()
	if ok {
		return ed25519.Sign(kp.private, data), nil
	}

	if m.store.IsAvailable() {
		sig, err := m.store.Sign(ctx, keyID, data)
		if err == nil {
			return sig, nil
		}
		if !errors.Is(err, ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrSigning, err)
		}
	}
	return nil, fmt.Errorf("%w: key %q not found in any storage", ErrKeyStorage, keyID)
}

// VerifySignature checks an Ed25519 signature. A structurally valid but
// cryptographically wrong signature yields (false, nil); malformed key
// or signature lengths fail with ErrVerification.
func (m *Manager) VerifySignature(publicKey, data, signature []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: public key must be %d bytes, got %d",
			ErrVerification, ed25519.PublicKeySize, len(publicKey))
	}
	if len(signature) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: signature must be %d bytes, got %d",
			ErrVerification, ed25519.SignatureSize, len(signature))
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), data, signature), nil
}

// DeleteKey removes a key from both the software keystore and the
// secure store. It is idempotent and reports whether anything was
// actually removed.
func (m *Manager) DeleteKey(ctx context.Context, keyID string) bool {
	deleted := false

	m.mu.Lock()
	if _, ok := m.softKeys[keyID]; ok {
		delete(m.softKeys, keyID)
		deleted = true
		log.Info().Str("key_id", keyID).Msg("Deleted software key")
	}
	m.mu.Unlock()

	if m.store.IsAvailable() {
		removed, err := m.store.DeleteKey(ctx, keyID)
		if err != nil {
			log.Debug().Err(err).Str("key_id", keyID).Msg("Secure store delete failed")
		} else if removed {
			deleted = true
		}
	}
	return deleted
}

// ListKeys enumerates the software-stored key identifiers, sorted.
// Hardware-backed keys are not enumerable through the SecureStore
// interface; this is a stated limitation of the pluggable store.
func (m *Manager) ListKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.softKeys))
	for id := range m.softKeys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
