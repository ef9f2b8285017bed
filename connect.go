package cpor

import "fmt"

// Key storage kinds a client may request in a ConnectRequest.
const (
	KeyStorageSoftware = "software"
	KeyStorageTPM      = "tpm"
)

// ConnectRequest opens a new session. The nonce guards against replayed
// connection attempts; resume_sequence carries the last acknowledged
// sequence number when the client is reconnecting.
type ConnectRequest struct {
	Header
	Type             Type     `cbor:"type"`
	ClientID         string   `cbor:"client_id"`
	ClientPubkey     []byte   `cbor:"client_pubkey"`
	ResumeSequence   int64    `cbor:"resume_sequence"`
	Nonce            []byte   `cbor:"nonce"`
	RegistrationFlag bool     `cbor:"registration_flag"`
	ProtocolVersion  string   `cbor:"protocol_version,omitempty"`
	Capabilities     []string `cbor:"capabilities"`
	KeyStorage       string   `cbor:"key_storage,omitempty"`
}

// NewConnectRequest validates m and returns it as an immutable message.
// Unset header fields receive protocol defaults before validation.
func NewConnectRequest(m ConnectRequest) (*ConnectRequest, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *ConnectRequest) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeConnectRequest
	}
	if m.Capabilities == nil {
		m.Capabilities = []string{}
	}
}

func (m *ConnectRequest) MessageType() Type { return TypeConnectRequest }

func (m *ConnectRequest) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeConnectRequest); err != nil {
		return err
	}
	if m.ClientID == "" {
		return fmt.Errorf("%w: client_id must be a non-empty string", ErrInvalidMessage)
	}
	if err := validatePublicKey("client_pubkey", m.ClientPubkey); err != nil {
		return err
	}
	if err := validateNonce("nonce", m.Nonce); err != nil {
		return err
	}
	if m.KeyStorage != "" && m.KeyStorage != KeyStorageSoftware && m.KeyStorage != KeyStorageTPM {
		return fmt.Errorf("%w: key_storage must be %q or %q", ErrInvalidMessage, KeyStorageTPM, KeyStorageSoftware)
	}
	return validateNonNegative("resume_sequence", m.ResumeSequence)
}

// ConnectResponse answers a ConnectRequest. A non-zero status code marks
// a rejected connection and must be accompanied by an error message.
// The ephemeral public key is only present during the registration flow.
type ConnectResponse struct {
	Header
	Type               Type     `cbor:"type"`
	SessionID          string   `cbor:"session_id"`
	ServerPubkey       []byte   `cbor:"server_pubkey"`
	Accepted           bool     `cbor:"accepted"`
	ResumeSequence     int64    `cbor:"resume_sequence"`
	StatusCode         int64    `cbor:"status_code"`
	ErrorMessage       string   `cbor:"error_message,omitempty"`
	ServerCapabilities []string `cbor:"server_capabilities"`
	MaxMessageSize     int64    `cbor:"max_message_size"`
	EphemeralPubkey    []byte   `cbor:"ephemeral_pubkey,omitempty"`
}

// DefaultMaxMessageSize is applied when a ConnectResponse is constructed
// without an explicit frame size limit.
const DefaultMaxMessageSize = 1 << 20

// NewConnectResponse validates m and returns it as an immutable message.
func NewConnectResponse(m ConnectResponse) (*ConnectResponse, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *ConnectResponse) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeConnectResponse
	}
	if m.MaxMessageSize == 0 {
		m.MaxMessageSize = DefaultMaxMessageSize
	}
	if m.ServerCapabilities == nil {
		m.ServerCapabilities = []string{}
	}
}

func (m *ConnectResponse) MessageType() Type { return TypeConnectResponse }

func (m *ConnectResponse) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeConnectResponse); err != nil {
		return err
	}
	if m.SessionID == "" {
		return fmt.Errorf("%w: session_id must be a non-empty string", ErrInvalidMessage)
	}
	if err := validatePublicKey("server_pubkey", m.ServerPubkey); err != nil {
		return err
	}
	if m.StatusCode != 0 && m.ErrorMessage == "" {
		return fmt.Errorf("%w: error_message required when status_code != 0", ErrInvalidMessage)
	}
	if m.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: max_message_size must be a positive integer", ErrInvalidMessage)
	}
	if err := validateNonNegative("resume_sequence", m.ResumeSequence); err != nil {
		return err
	}
	if m.EphemeralPubkey != nil {
		if len(m.EphemeralPubkey) != PublicKeySize {
			return fmt.Errorf("%w: ephemeral_pubkey must be %d bytes for Ed25519", ErrInvalidMessage, PublicKeySize)
		}
	}
	return nil
}
