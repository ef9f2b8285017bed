package crypto

import (
	"context"
	"crypto/ed25519"
	"errors"
	"reflect"
	"testing"
)

func TestGenerateKeyPairSoftware(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	kp, err := m.GenerateKeyPair(ctx, "key-1", StorageSoftware)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	if kp.Storage != StorageSoftware {
		t.Errorf("Storage = %q, want %q", kp.Storage, StorageSoftware)
	}
	if len(kp.PublicKey) != ed25519.PublicKeySize {
		t.Errorf("public key length = %d, want %d", len(kp.PublicKey), ed25519.PublicKeySize)
	}

	priv, err := kp.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey() error = %v", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		t.Errorf("private key length = %d, want %d", len(priv), ed25519.PrivateKeySize)
	}
}

func TestGenerateKeyPairInvalidStorage(t *testing.T) {
	m := NewManager()
	_, err := m.GenerateKeyPair(context.Background(), "key-1", StorageKind("hsm"))
	if !errors.Is(err, ErrKeyGeneration) {
		t.Errorf("error = %v, want ErrKeyGeneration", err)
	}
}

func TestGenerateKeyPairHardwareFallback(t *testing.T) {
	store := NewSoftStore()
	store.SetAvailable(false)
	m := NewManager(WithSecureStore(store))

	// TPM requested, hardware down: the key lands in software storage
	// and says so.
	kp, err := m.GenerateKeyPair(context.Background(), "key-1", StorageTPM)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	if kp.Storage != StorageSoftware {
		t.Errorf("Storage = %q, want fallback to %q", kp.Storage, StorageSoftware)
	}
}

func TestGenerateKeyPairRequireHardware(t *testing.T) {
	store := NewSoftStore()
	store.SetAvailable(false)
	m := NewManager(WithSecureStore(store), WithRequireHardware())

	_, err := m.GenerateKeyPair(context.Background(), "key-1", StorageTPM)
	if !errors.Is(err, ErrKeyGeneration) {
		t.Fatalf("error = %v, want ErrKeyGeneration", err)
	}

	// Software keys are unaffected by the hardware requirement.
	if _, err := m.GenerateKeyPair(context.Background(), "key-2", StorageSoftware); err != nil {
		t.Errorf("software GenerateKeyPair() error = %v", err)
	}
}

func TestHardwareBackedKeyPair(t *testing.T) {
	store := NewSoftStore()
	store.SetAvailable(true)
	m := NewManager(WithSecureStore(store))
	ctx := context.Background()

	kp, err := m.GenerateKeyPair(ctx, "key-1", StorageTPM)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	if kp.Storage != StorageTPM {
		t.Errorf("Storage = %q, want %q", kp.Storage, StorageTPM)
	}

	// Private material never leaves the store.
	if _, err := kp.PrivateKey(); !errors.Is(err, ErrKeyStorage) {
		t.Errorf("PrivateKey() error = %v, want ErrKeyStorage", err)
	}

	// But signing through the manager works end to end.
	data := []byte("through the store")
	sig, err := m.SignData(ctx, "key-1", data)
	if err != nil {
		t.Fatalf("SignData() error = %v", err)
	}
	ok, err := m.VerifySignature(kp.PublicKey, data, sig)
	if err != nil {
		t.Fatalf("VerifySignature() error = %v", err)
	}
	if !ok {
		t.Error("VerifySignature() = false for a store-produced signature")
	}
}

func TestSignDataUnknownKey(t *testing.T) {
	m := NewManager()
	_, err := m.SignData(context.Background(), "missing", []byte("data"))
	if !errors.Is(err, ErrKeyStorage) {
		t.Errorf("error = %v, want ErrKeyStorage", err)
	}
}

func TestVerifySignatureMalformedLengths(t *testing.T) {
	m := NewManager()
	kp, err := m.GenerateKeyPair(context.Background(), "key-1", StorageSoftware)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	data := []byte("data")
	sig, err := m.SignData(context.Background(), "key-1", data)
	if err != nil {
		t.Fatalf("SignData() error = %v", err)
	}

	if _, err := m.VerifySignature(kp.PublicKey[:16], data, sig); !errors.Is(err, ErrVerification) {
		t.Errorf("short key: error = %v, want ErrVerification", err)
	}
	if _, err := m.VerifySignature(kp.PublicKey, data, sig[:32]); !errors.Is(err, ErrVerification) {
		t.Errorf("short signature: error = %v, want ErrVerification", err)
	}

	// Right lengths, wrong bytes: a clean false.
	bad := make([]byte, len(sig))
	copy(bad, sig)
	bad[0] ^= 0xff
	ok, err := m.VerifySignature(kp.PublicKey, data, bad)
	if err != nil {
		t.Fatalf("VerifySignature() error = %v", err)
	}
	if ok {
		t.Error("VerifySignature() = true for a corrupted signature")
	}

	// Same for mutated data under the original signature.
	ok, err = m.VerifySignature(kp.PublicKey, []byte("datx"), sig)
	if err != nil {
		t.Fatalf("VerifySignature() error = %v", err)
	}
	if ok {
		t.Error("VerifySignature() = true for mutated data")
	}
}

func TestGetKeyPair(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	if _, err := m.GetKeyPair(ctx, "missing"); !errors.Is(err, ErrKeyStorage) {
		t.Errorf("error = %v, want ErrKeyStorage", err)
	}

	kp, err := m.GenerateKeyPair(ctx, "key-1", StorageSoftware)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	got, err := m.GetKeyPair(ctx, "key-1")
	if err != nil {
		t.Fatalf("GetKeyPair() error = %v", err)
	}
	if !reflect.DeepEqual(got.PublicKey, kp.PublicKey) {
		t.Error("GetKeyPair() returned a different public key")
	}
}

func TestDeleteKeyIdempotent(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	if _, err := m.GenerateKeyPair(ctx, "key-1", StorageSoftware); err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	if !m.DeleteKey(ctx, "key-1") {
		t.Error("DeleteKey() = false on first delete")
	}
	if m.DeleteKey(ctx, "key-1") {
		t.Error("DeleteKey() = true on second delete")
	}
	if m.DeleteKey(ctx, "never-existed") {
		t.Error("DeleteKey() = true for a key that never existed")
	}
}

func TestListKeysSorted(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		if _, err := m.GenerateKeyPair(ctx, id, StorageSoftware); err != nil {
			t.Fatalf("GenerateKeyPair(%q) error = %v", id, err)
		}
	}

	got := m.ListKeys()
	want := []string{"alpha", "bravo", "charlie"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListKeys() = %v, want %v", got, want)
	}
}
