package crypto

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// SecureStore is the pluggable hardware-backed key storage capability.
// Implementations keep private key material on their side of the
// boundary; callers only ever see public keys and signatures.
//
// Generating a key for an identifier that already exists fails, and
// operations on an unknown identifier fail with an error wrapping
// ErrKeyNotFound. Keys held by a SecureStore are not enumerable.
type SecureStore interface {
	// IsAvailable reports whether the store is reachable and functional.
	IsAvailable() bool

	// GenerateKey creates a new Ed25519 key and returns its 32-byte
	// public key.
	GenerateKey(ctx context.Context, keyID string) ([]byte, error)

	// Sign signs data with the stored private key, returning the
	// 64-byte signature.
	Sign(ctx context.Context, keyID string, data []byte) ([]byte, error)

	// PublicKey returns the 32-byte public key for a stored key.
	PublicKey(ctx context.Context, keyID string) ([]byte, error)

	// DeleteKey removes a key, reporting whether one was removed.
	DeleteKey(ctx context.Context, keyID string) (bool, error)
}

// SoftStore is the in-memory SecureStore stub shipped by default. It
// behaves like hardware storage (private material is never handed out)
// without any device behind it, which makes it suitable for development
// and for exercising the fallback path in tests via SetAvailable.
type SoftStore struct {
	mu        sync.Mutex
	keys      map[string]ed25519.PrivateKey
	available bool
}

// NewSoftStore returns an available, empty stub store.
func NewSoftStore() *SoftStore {
	return &SoftStore{
		keys:      make(map[string]ed25519.PrivateKey),
		available: true,
	}
}

// SetAvailable flips the simulated device availability.
func (s *SoftStore) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = available
	log.Debug().Bool("available", available).Msg("Secure store stub availability set")
}

func (s *SoftStore) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *SoftStore) GenerateKey(_ context.Context, keyID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[keyID]; exists {
		return nil, fmt.Errorf("%w: key %q already exists", ErrSecureStore, keyID)
	}
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecureStore, err)
	}
	s.keys[keyID] = priv
	log.Info().Str("key_id", keyID).Msg("Generated secure store key")
	return pub, nil
}

func (s *SoftStore) Sign(_ context.Context, keyID string, data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	priv, ok := s.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}
	return ed25519.Sign(priv, data), nil
}

func (s *SoftStore) PublicKey(_ context.Context, keyID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	priv, ok := s.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}
	return priv.Public().(ed25519.PublicKey), nil
}

func (s *SoftStore) DeleteKey(_ context.Context, keyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[keyID]; !ok {
		return false, nil
	}
	delete(s.keys, keyID)
	log.Info().Str("key_id", keyID).Msg("Deleted secure store key")
	return true, nil
}
