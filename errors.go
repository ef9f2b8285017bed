package cpor

import "errors"

var (
	// ErrInvalidMessage indicates a field violates its message contract,
	// or the message kind could not be determined from a decoded payload.
	ErrInvalidMessage = errors.New("cpor: invalid message")

	// ErrSerialization indicates the byte stream is not valid canonical
	// CBOR, or does not encode a field-name-keyed mapping.
	ErrSerialization = errors.New("cpor: serialization failed")

	// ErrSigning indicates the sign/verify primitive itself could not run,
	// e.g. a key or signature of the wrong length. A structurally valid but
	// cryptographically wrong signature is reported as a false result from
	// Verify, never as an error.
	ErrSigning = errors.New("cpor: signing failed")
)
