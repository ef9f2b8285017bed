package crypto

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/rs/zerolog/log"
)

// KMSConfig holds the settings for the KMS-sealed secure store.
type KMSConfig struct {
	Region        string `yaml:"region"`
	SealingKeyARN string `yaml:"sealing_key_arn"`
}

// sealedKey is one KMS-sealed Ed25519 identity: the public half in the
// clear, the private seed only as a KMS ciphertext.
type sealedKey struct {
	Public     []byte `cbor:"public"`
	SealedSeed []byte `cbor:"sealed_seed"`
}

// KMSStore is a SecureStore that keeps private key material sealed
// under an AWS KMS key. Seeds exist in plaintext only transiently,
// inside GenerateKey and Sign, and are wiped immediately after use; at
// rest and in backups only the KMS ciphertext is held, so a process
// dump never exposes a usable private key.
type KMSStore struct {
	client        *kms.Client
	sealingKeyARN string

	mu   sync.Mutex
	keys map[string]sealedKey
}

// NewKMSStore creates a KMS-sealed store.
func NewKMSStore(ctx context.Context, cfg KMSConfig) (*KMSStore, error) {
	if cfg.SealingKeyARN == "" {
		log.Warn().Msg("KMS sealing key ARN not configured - sealed key operations will fail")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &KMSStore{
		client:        kms.NewFromConfig(awsCfg),
		sealingKeyARN: cfg.SealingKeyARN,
		keys:          make(map[string]sealedKey),
	}, nil
}

// IsAvailable reports whether the store is configured with a sealing key.
func (s *KMSStore) IsAvailable() bool {
	return s.sealingKeyARN != ""
}

func (s *KMSStore) GenerateKey(ctx context.Context, keyID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[keyID]; exists {
		return nil, fmt.Errorf("%w: key %q already exists", ErrSecureStore, keyID)
	}

	seed, err := GenerateNonce(ed25519.SeedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecureStore, err)
	}
	defer zeroBytes(seed)

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	zeroBytes(priv)

	sealed, err := s.seal(ctx, seed)
	if err != nil {
		return nil, err
	}

	s.keys[keyID] = sealedKey{Public: pub, SealedSeed: sealed}
	log.Info().Str("key_id", keyID).Msg("Generated KMS-sealed key")
	return pub, nil
}

func (s *KMSStore) Sign(ctx context.Context, keyID string, data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}

	seed, err := s.unseal(ctx, entry.SealedSeed)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(seed)

	priv := ed25519.NewKeyFromSeed(seed)
	defer zeroBytes(priv)
	return ed25519.Sign(priv, data), nil
}

func (s *KMSStore) PublicKey(_ context.Context, keyID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}
	return entry.Public, nil
}

func (s *KMSStore) DeleteKey(_ context.Context, keyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[keyID]; !ok {
		return false, nil
	}
	delete(s.keys, keyID)
	log.Info().Str("key_id", keyID).Msg("Deleted KMS-sealed key")
	return true, nil
}

// seal encrypts an Ed25519 seed under the sealing key.
func (s *KMSStore) seal(ctx context.Context, seed []byte) ([]byte, error) {
	if s.sealingKeyARN == "" {
		return nil, fmt.Errorf("%w: KMS sealing key ARN not configured", ErrSecureStore)
	}
	result, err := s.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     &s.sealingKeyARN,
		Plaintext: seed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: KMS encrypt failed: %v", ErrSecureStore, err)
	}
	return result.CiphertextBlob, nil
}

// unseal decrypts a sealed seed for transient use.
func (s *KMSStore) unseal(ctx context.Context, sealed []byte) ([]byte, error) {
	if s.sealingKeyARN == "" {
		return nil, fmt.Errorf("%w: KMS sealing key ARN not configured", ErrSecureStore)
	}
	result, err := s.client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:          &s.sealingKeyARN,
		CiphertextBlob: sealed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: KMS decrypt failed: %v", ErrSecureStore, err)
	}
	return result.Plaintext, nil
}

// snapshot copies the sealed key set for backup. The copy contains only
// public keys and KMS ciphertexts.
func (s *KMSStore) snapshot() map[string]sealedKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]sealedKey, len(s.keys))
	for id, entry := range s.keys {
		out[id] = entry
	}
	return out
}

// load replaces the sealed key set from a backup snapshot.
func (s *KMSStore) load(keys map[string]sealedKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]sealedKey, len(keys))
	for id, entry := range keys {
		s.keys[id] = entry
	}
}
