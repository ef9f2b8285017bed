package cpor

import "fmt"

// ParseLegacy decodes a frame from a peer speaking the pre-discriminant
// dialect. When the "type" field is present it behaves exactly like
// Parse; when it is absent the kind is inferred from which fields the
// mapping carries.
//
// The inference below is ambiguous by construction: several predicates
// test overlapping optional fields, so the predicate ORDER is part of
// the compatibility contract and must not change. A resume-response
// shaped payload, for example, only classifies correctly because its
// predicate is checked before the ack predicate. New code should always
// send a discriminant and use Parse.
func ParseLegacy(data []byte) (Message, error) {
	fields, err := decodeMapping(data)
	if err != nil {
		return nil, err
	}
	if raw, ok := fields["type"]; ok {
		name, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: type field must be a string", ErrInvalidMessage)
		}
		return decodeAs(Type(name), data)
	}
	kind, err := inferKind(fields)
	if err != nil {
		return nil, err
	}
	return decodeAs(kind, data)
}

// inferKind applies the fixed, ordered field-presence predicates. First
// match wins. The alias names (sequence_counter, ack_counter, ...) come
// from pre-CPOR-2 field naming and only participate in kind selection;
// they are not decoded into the resulting message.
func inferKind(fields map[string]any) (Type, error) {
	has := func(k string) bool {
		_, ok := fields[k]
		return ok
	}

	switch {
	case has("client_id") && (has("client_pubkey") || has("public_key")):
		return TypeConnectRequest, nil
	case has("session_id") && has("accepted") && (has("server_pubkey") || has("server_public_key")):
		return TypeConnectResponse, nil
	case (has("sequence_number") || has("sequence_counter")) && has("payload"):
		return TypeGeneric, nil
	case (has("last_sequence_number") || has("last_received_sequence")) && has("client_nonce"):
		return TypeResumeRequest, nil
	case (has("resume_accepted") || has("status_code")) && (has("server_nonce") || has("resume_sequence")):
		return TypeResumeResponse, nil
	case has("messages") && has("batch_id"):
		return TypeBatch, nil
	case has("heartbeat_id") || has("timestamp"):
		return TypeHeartbeat, nil
	case has("reason") && (has("graceful") || has("final_sequence")):
		return TypeClose, nil
	case has("ack_sequence") || has("ack_counter"):
		return TypeAck, nil
	case has("error_code") && (has("error_message") || has("message")):
		return TypeError, nil
	}
	return "", fmt.Errorf("%w: cannot determine message type from fields", ErrInvalidMessage)
}
