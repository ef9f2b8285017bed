package crypto

import (
	"bytes"
	"context"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog/log"
)

// S3Config holds the settings for sealed key backups.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	KeyPrefix string `yaml:"key_prefix"`
}

// S3KeyBackup persists a KMSStore's sealed key set as a CBOR snapshot
// in S3. Snapshots contain public keys and KMS ciphertexts only, so the
// bucket never holds usable private material.
type S3KeyBackup struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3KeyBackup creates a backup client.
func NewS3KeyBackup(ctx context.Context, cfg S3Config) (*S3KeyBackup, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3KeyBackup{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.KeyPrefix,
	}, nil
}

// Save uploads the store's current sealed key set under name.
func (b *S3KeyBackup) Save(ctx context.Context, name string, store *KMSStore) error {
	snapshot := store.snapshot()
	data, err := cbor.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode key snapshot: %w", err)
	}

	key := b.prefix + name
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject failed: %w", err)
	}

	log.Info().
		Str("bucket", b.bucket).
		Str("key", key).
		Int("keys", len(snapshot)).
		Msg("Sealed key backup saved")
	return nil
}

// Restore downloads the snapshot stored under name and replaces the
// store's sealed key set with it.
func (b *S3KeyBackup) Restore(ctx context.Context, name string, store *KMSStore) error {
	key := b.prefix + name
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("S3 GetObject failed: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("failed to read S3 object: %w", err)
	}

	var snapshot map[string]sealedKey
	if err := cbor.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to decode key snapshot: %w", err)
	}
	store.load(snapshot)

	log.Info().
		Str("bucket", b.bucket).
		Str("key", key).
		Int("keys", len(snapshot)).
		Msg("Sealed key backup restored")
	return nil
}
