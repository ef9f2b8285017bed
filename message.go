package cpor

import "fmt"

// ProtocolVersion is the version tag carried by every CPOR message.
// Construction and decoding reject any other value.
const ProtocolVersion = "CPOR-2"

// Ed25519 wire-format lengths, in bytes.
const (
	PublicKeySize = 32
	SignatureSize = 64

	// MinNonceSize is the minimum length accepted for anti-replay nonces.
	MinNonceSize = 16
)

// Type identifies a message kind on the wire. It is carried in the
// "type" field of every encoded message.
type Type string

const (
	TypeConnectRequest  Type = "connect_request"
	TypeConnectResponse Type = "connect_response"
	TypeGeneric         Type = "generic"
	TypeResumeRequest   Type = "resume_request"
	TypeResumeResponse  Type = "resume_response"
	TypeBatch           Type = "batch"
	TypeHeartbeat       Type = "heartbeat"
	TypeClose           Type = "close"
	TypeAck             Type = "ack"
	TypeError           Type = "error"
)

// Message is implemented by all ten CPOR message kinds.
//
// Implementations are value types: once returned by a constructor or by
// Parse they are fully valid and must not be mutated.
// The unexported method keeps the set of kinds closed: no type outside
// this package can satisfy the interface.
type Message interface {
	// MessageType returns the wire discriminant for this kind.
	MessageType() Type

	// Validate checks every field invariant, returning an error wrapping
	// ErrInvalidMessage on the first violation.
	Validate() error

	// fillDefaults applies protocol defaults (version tag, discriminant,
	// per-kind zero-value substitutions) prior to validation.
	fillDefaults()
}

// Header holds the fields common to every message. The version tag is
// mandatory; message ID and timestamp are optional and omitted from the
// encoding when unset.
type Header struct {
	Version   string `cbor:"version"`
	MessageID string `cbor:"message_id,omitempty"`
	Timestamp int64  `cbor:"timestamp,omitempty"`
}

func (h Header) validate() error {
	if h.Version != ProtocolVersion {
		return fmt.Errorf("%w: invalid protocol version %q", ErrInvalidMessage, h.Version)
	}
	return nil
}

// fill applies the version default so that zero-value constructor input
// yields the supported protocol version.
func (h *Header) fill() {
	if h.Version == "" {
		h.Version = ProtocolVersion
	}
}

func validatePublicKey(field string, key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: %s must be non-empty", ErrInvalidMessage, field)
	}
	if len(key) != PublicKeySize {
		return fmt.Errorf("%w: %s must be %d bytes for Ed25519", ErrInvalidMessage, field, PublicKeySize)
	}
	return nil
}

func validateNonce(field string, nonce []byte) error {
	if len(nonce) == 0 {
		return fmt.Errorf("%w: %s must be non-empty", ErrInvalidMessage, field)
	}
	if len(nonce) < MinNonceSize {
		return fmt.Errorf("%w: %s must be at least %d bytes", ErrInvalidMessage, field, MinNonceSize)
	}
	return nil
}

func validateNonNegative(field string, v int64) error {
	if v < 0 {
		return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidMessage, field)
	}
	return nil
}

func validateType(got, want Type) error {
	if got != want {
		return fmt.Errorf("%w: type must be %q", ErrInvalidMessage, want)
	}
	return nil
}
