package cpor

import "fmt"

// HeartbeatMessage keeps an idle session alive and exchanges the current
// sequence positions of both sides.
type HeartbeatMessage struct {
	Header
	Type             Type   `cbor:"type"`
	HeartbeatID      string `cbor:"heartbeat_id"`
	ClientSequence   int64  `cbor:"client_sequence"`
	ServerSequence   int64  `cbor:"server_sequence"`
	RequiresResponse bool   `cbor:"requires_response"`
}

// NewHeartbeatMessage validates m and returns it as an immutable message.
func NewHeartbeatMessage(m HeartbeatMessage) (*HeartbeatMessage, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *HeartbeatMessage) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeHeartbeat
	}
}

func (m *HeartbeatMessage) MessageType() Type { return TypeHeartbeat }

func (m *HeartbeatMessage) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeHeartbeat); err != nil {
		return err
	}
	if m.HeartbeatID == "" {
		return fmt.Errorf("%w: heartbeat_id must be a non-empty string", ErrInvalidMessage)
	}
	if err := validateNonNegative("client_sequence", m.ClientSequence); err != nil {
		return err
	}
	return validateNonNegative("server_sequence", m.ServerSequence)
}

// CloseMessage ends a session, gracefully or not. When present,
// final_sequence tells the peer the last sequence number that was sent.
type CloseMessage struct {
	Header
	Type          Type   `cbor:"type"`
	Reason        string `cbor:"reason"`
	FinalSequence *int64 `cbor:"final_sequence,omitempty"`
	Graceful      bool   `cbor:"graceful"`
}

// NewCloseMessage validates m and returns it as an immutable message.
func NewCloseMessage(m CloseMessage) (*CloseMessage, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *CloseMessage) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeClose
	}
}

func (m *CloseMessage) MessageType() Type { return TypeClose }

func (m *CloseMessage) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeClose); err != nil {
		return err
	}
	if m.Reason == "" {
		return fmt.Errorf("%w: reason must be a non-empty string", ErrInvalidMessage)
	}
	if m.FinalSequence != nil && *m.FinalSequence < 0 {
		return fmt.Errorf("%w: final_sequence must be a non-negative integer", ErrInvalidMessage)
	}
	return nil
}

// Severities accepted by ErrorMessage.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
	SeverityFatal   = "fatal"
)

// ErrorMessage reports a protocol violation or failure to the peer.
type ErrorMessage struct {
	Header
	Type         Type           `cbor:"type"`
	ErrorCode    int64          `cbor:"error_code"`
	ErrorMessage string         `cbor:"error_message"`
	Severity     string         `cbor:"severity"`
	Recoverable  bool           `cbor:"recoverable"`
	Details      map[string]any `cbor:"details,omitempty"`
}

// NewErrorMessage validates m and returns it as an immutable message.
// Severity defaults to "error".
func NewErrorMessage(m ErrorMessage) (*ErrorMessage, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *ErrorMessage) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeError
	}
	if m.Severity == "" {
		m.Severity = SeverityError
	}
}

func (m *ErrorMessage) MessageType() Type { return TypeError }

func (m *ErrorMessage) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeError); err != nil {
		return err
	}
	if m.ErrorMessage == "" {
		return fmt.Errorf("%w: error_message must be a non-empty string", ErrInvalidMessage)
	}
	switch m.Severity {
	case SeverityWarning, SeverityError, SeverityFatal:
		return nil
	default:
		return fmt.Errorf("%w: severity must be one of: %s, %s, %s",
			ErrInvalidMessage, SeverityWarning, SeverityError, SeverityFatal)
	}
}
