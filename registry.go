package cpor

import "fmt"

// messageFactories is the closed discriminant table used for decode-time
// dispatch. The kind set is fixed at ten; the table is never mutated
// after package initialization.
var messageFactories = map[Type]func() Message{
	TypeConnectRequest:  func() Message { return new(ConnectRequest) },
	TypeConnectResponse: func() Message { return new(ConnectResponse) },
	TypeGeneric:         func() Message { return new(GenericMessage) },
	TypeResumeRequest:   func() Message { return new(ResumeRequest) },
	TypeResumeResponse:  func() Message { return new(ResumeResponse) },
	TypeBatch:           func() Message { return new(BatchMessage) },
	TypeHeartbeat:       func() Message { return new(HeartbeatMessage) },
	TypeClose:           func() Message { return new(CloseMessage) },
	TypeAck:             func() Message { return new(AckMessage) },
	TypeError:           func() Message { return new(ErrorMessage) },
}

// Parse decodes an arbitrary frame into its concrete message kind using
// the explicit "type" discriminant. Frames without a discriminant are
// rejected; peers speaking the pre-discriminant dialect must be handled
// through ParseLegacy, opted into deliberately.
func Parse(data []byte) (Message, error) {
	fields, err := decodeMapping(data)
	if err != nil {
		return nil, err
	}
	raw, ok := fields["type"]
	if !ok {
		return nil, fmt.Errorf("%w: cannot determine message type: no type field", ErrInvalidMessage)
	}
	name, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: type field must be a string", ErrInvalidMessage)
	}
	return decodeAs(Type(name), data)
}

// decodeAs decodes data as the given kind and validates the result.
func decodeAs(t Type, data []byte) (Message, error) {
	factory, ok := messageFactories[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidMessage, t)
	}
	msg := factory()
	if err := decMode.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	msg.fillDefaults()
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}
