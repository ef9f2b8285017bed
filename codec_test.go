package cpor

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	req, err := NewConnectRequest(ConnectRequest{
		ClientID:         "client-42",
		ClientPubkey:     testPubkey(),
		Nonce:            testNonce(),
		ResumeSequence:   17,
		RegistrationFlag: true,
		Capabilities:     []string{"batch", "resume"},
		KeyStorage:       KeyStorageTPM,
	})
	if err != nil {
		t.Fatalf("NewConnectRequest() error = %v", err)
	}

	data, err := Encode(req)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	got, err := Decode[ConnectRequest](data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, req)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	msg, err := NewGenericMessage(GenericMessage{
		SequenceNumber: 3,
		Payload:        []byte("payload"),
		Priority:       2,
		RequiresAck:    true,
	})
	if err != nil {
		t.Fatalf("NewGenericMessage() error = %v", err)
	}

	first, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Decode and re-encode: canonical form means identical bytes, which
	// is what lets signatures survive a decode/encode cycle.
	decoded, err := Decode[GenericMessage](first)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	second, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("canonical encoding not stable:\n first %x\nsecond %x", first, second)
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	// Constructed without the constructor, so invalid state is possible;
	// Encode must still refuse it.
	msg := &GenericMessage{}
	msg.fillDefaults()
	msg.SequenceNumber = -5

	_, err := Encode(msg)
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("Encode() error = %v, want ErrInvalidMessage", err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode[GenericMessage]([]byte{0xff, 0x00, 0x13, 0x37})
	if !errors.Is(err, ErrSerialization) {
		t.Errorf("Decode(junk) error = %v, want ErrSerialization", err)
	}
}

func TestDecodeAppliesDefaults(t *testing.T) {
	// A frame missing optional fields still decodes to a valid message:
	// the same defaulting as construction runs after unmarshal.
	data, err := encMode.Marshal(map[string]any{
		"version":         ProtocolVersion,
		"type":            string(TypeGeneric),
		"sequence_number": 1,
		"payload":         []byte("x"),
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	msg, err := Decode[GenericMessage](data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.PayloadType != "data" {
		t.Errorf("PayloadType = %q, want defaulted %q", msg.PayloadType, "data")
	}
}

func TestDecodeRevalidates(t *testing.T) {
	data, err := encMode.Marshal(map[string]any{
		"version":         ProtocolVersion,
		"type":            string(TypeGeneric),
		"sequence_number": -9,
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	_, err = Decode[GenericMessage](data)
	if err == nil {
		t.Fatal("Decode() accepted a negative sequence number")
	}
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("error = %v, want ErrInvalidMessage", err)
	}
	if !strings.Contains(err.Error(), "sequence_number must be a non-negative integer") {
		t.Errorf("error = %q, want sequence invariant message", err)
	}
}
