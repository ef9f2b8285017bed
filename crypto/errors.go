package crypto

import "errors"

var (
	// ErrKeyGeneration indicates a key pair could not be created.
	ErrKeyGeneration = errors.New("crypto: key generation failed")

	// ErrSigning indicates the signing primitive could not run.
	ErrSigning = errors.New("crypto: signing failed")

	// ErrVerification indicates verification could not run because the
	// inputs are malformed. A cryptographically wrong signature is a
	// false result, not an error.
	ErrVerification = errors.New("crypto: verification failed")

	// ErrKeyStorage indicates a key lifecycle problem: an identifier
	// unknown to every store, or an attempt to export hardware-held
	// private material.
	ErrKeyStorage = errors.New("crypto: key storage error")

	// ErrSecureStore indicates the hardware-backed store failed an
	// operation (device error, duplicate identifier, ...).
	ErrSecureStore = errors.New("crypto: secure store error")

	// ErrKeyNotFound marks a store operation on an unknown identifier.
	ErrKeyNotFound = errors.New("crypto: key not found")
)
