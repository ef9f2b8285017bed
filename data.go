package cpor

import "fmt"

// GenericMessage carries an opaque application payload at a position in
// the session's delivery order.
type GenericMessage struct {
	Header
	Type           Type   `cbor:"type"`
	SequenceNumber int64  `cbor:"sequence_number"`
	Payload        []byte `cbor:"payload"`
	PayloadType    string `cbor:"message_type"`
	Priority       int64  `cbor:"priority"`
	RequiresAck    bool   `cbor:"requires_ack"`
}

// NewGenericMessage validates m and returns it as an immutable message.
// The payload type defaults to "data".
func NewGenericMessage(m GenericMessage) (*GenericMessage, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *GenericMessage) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeGeneric
	}
	if m.PayloadType == "" {
		m.PayloadType = "data"
	}
}

func (m *GenericMessage) MessageType() Type { return TypeGeneric }

func (m *GenericMessage) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeGeneric); err != nil {
		return err
	}
	if err := validateNonNegative("sequence_number", m.SequenceNumber); err != nil {
		return err
	}
	if m.PayloadType == "" {
		return fmt.Errorf("%w: message_type must be a non-empty string", ErrInvalidMessage)
	}
	return nil
}

// BatchMessage groups up to total_count sub-message payloads for a single
// delivery. The entries are untyped mappings, not decoded Messages; the
// receiver parses each one individually.
type BatchMessage struct {
	Header
	Type       Type             `cbor:"type"`
	BatchID    string           `cbor:"batch_id"`
	TotalCount int64            `cbor:"total_count"`
	Messages   []map[string]any `cbor:"messages"`
}

// NewBatchMessage validates m and returns it as an immutable message.
func NewBatchMessage(m BatchMessage) (*BatchMessage, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *BatchMessage) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeBatch
	}
	if m.Messages == nil {
		m.Messages = []map[string]any{}
	}
}

func (m *BatchMessage) MessageType() Type { return TypeBatch }

func (m *BatchMessage) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeBatch); err != nil {
		return err
	}
	if m.BatchID == "" {
		return fmt.Errorf("%w: batch_id must be a non-empty string", ErrInvalidMessage)
	}
	if m.TotalCount <= 0 {
		return fmt.Errorf("%w: total_count must be a positive integer", ErrInvalidMessage)
	}
	if int64(len(m.Messages)) > m.TotalCount {
		return fmt.Errorf("%w: messages count cannot exceed total_count", ErrInvalidMessage)
	}
	return nil
}

// Acknowledgment targets accepted by AckMessage.
const (
	AckTypeMessage   = "message"
	AckTypeHeartbeat = "heartbeat"
	AckTypeBatch     = "batch"
)

// AckMessage acknowledges delivery up to ack_sequence for one of the
// three acknowledgeable message categories.
type AckMessage struct {
	Header
	Type        Type   `cbor:"type"`
	AckSequence int64  `cbor:"ack_sequence"`
	AckType     string `cbor:"ack_type"`
	ErrorCode   *int64 `cbor:"error_code,omitempty"`
}

// NewAckMessage validates m and returns it as an immutable message.
// The ack type defaults to "message".
func NewAckMessage(m AckMessage) (*AckMessage, error) {
	m.fillDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *AckMessage) fillDefaults() {
	m.Header.fill()
	if m.Type == "" {
		m.Type = TypeAck
	}
	if m.AckType == "" {
		m.AckType = AckTypeMessage
	}
}

func (m *AckMessage) MessageType() Type { return TypeAck }

func (m *AckMessage) Validate() error {
	if err := m.Header.validate(); err != nil {
		return err
	}
	if err := validateType(m.Type, TypeAck); err != nil {
		return err
	}
	if err := validateNonNegative("ack_sequence", m.AckSequence); err != nil {
		return err
	}
	switch m.AckType {
	case AckTypeMessage, AckTypeHeartbeat, AckTypeBatch:
		return nil
	case "":
		return fmt.Errorf("%w: ack_type must be a non-empty string", ErrInvalidMessage)
	default:
		return fmt.Errorf("%w: ack_type must be one of: %s, %s, %s",
			ErrInvalidMessage, AckTypeMessage, AckTypeHeartbeat, AckTypeBatch)
	}
}
