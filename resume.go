package cpor

import "fmt"

// ResumeRequest re-establishes a session after disconnect by presenting
// the last sequence number the client received. The nonce prevents
// replay of old resume attempts.
type ResumeRequest struct {
	Header
	Type               Type   `cbor:"type"`
	ClientID           string `cbor:"client_id"`
	LastSequenceNumber int64  `cbor:"last_sequence_number"`
	ClientNonce        []byte `cbor:"client_nonce"`
}

// NewResumeRequest validates m and returns it as an immutable message.
func NewResumeRequest(m ResumeRequest) (*ResumeRequest, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *ResumeRequest) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeResumeRequest
	}
}

func (m *ResumeRequest) MessageType() Type { return TypeResumeRequest }

func (m *ResumeRequest) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeResumeRequest); err != nil {
		return err
	}
	if m.ClientID == "" {
		return fmt.Errorf("%w: client_id must be a non-empty string", ErrInvalidMessage)
	}
	if err := validateNonNegative("last_sequence_number", m.LastSequenceNumber); err != nil {
		return err
	}
	return validateNonce("client_nonce", m.ClientNonce)
}

// ResumeResponse answers a ResumeRequest. When the resumption is not
// accepted the server must say why in error_message; resume_sequence is
// the server's last acknowledged sequence number either way.
type ResumeResponse struct {
	Header
	Type           Type   `cbor:"type"`
	SessionID      string `cbor:"session_id"`
	StatusCode     int64  `cbor:"status_code"`
	ResumeSequence int64  `cbor:"resume_sequence"`
	ResumeAccepted bool   `cbor:"resume_accepted"`
	ServerNonce    []byte `cbor:"server_nonce"`
	ErrorMessage   string `cbor:"error_message,omitempty"`
}

// NewResumeResponse validates m and returns it as an immutable message.
func NewResumeResponse(m ResumeResponse) (*ResumeResponse, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *ResumeResponse) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeResumeResponse
	}
}

func (m *ResumeResponse) MessageType() Type { return TypeResumeResponse }

func (m *ResumeResponse) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeResumeResponse); err != nil {
		return err
	}
	if m.SessionID == "" {
		return fmt.Errorf("%w: session_id must be a non-empty string", ErrInvalidMessage)
	}
	if err := validateNonNegative("resume_sequence", m.ResumeSequence); err != nil {
		return err
	}
	if err := validateNonce("server_nonce", m.ServerNonce); err != nil {
		return err
	}
	if !m.ResumeAccepted && m.ErrorMessage == "" {
		return fmt.Errorf("%w: error_message required when resume_accepted=false", ErrInvalidMessage)
	}
	return nil
}
