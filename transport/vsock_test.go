package transport

import (
	"errors"
	"net"
	"testing"

	"github.com/hearthlink/cpor"
)

func TestVsockConduitFraming(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sender := &VsockConduit{conn: client}
	receiver := &VsockConduit{conn: server}

	msg, err := cpor.NewGenericMessage(cpor.GenericMessage{
		SequenceNumber: 5,
		Payload:        []byte("framed"),
		RequiresAck:    true,
	})
	if err != nil {
		t.Fatalf("NewGenericMessage() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- sender.Send(msg) }()

	got, err := receiver.Receive()
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	generic, ok := got.(*cpor.GenericMessage)
	if !ok {
		t.Fatalf("Receive() = %T, want *cpor.GenericMessage", got)
	}
	if generic.SequenceNumber != 5 || string(generic.Payload) != "framed" {
		t.Errorf("Receive() = %+v, want the sent message", generic)
	}
}

func TestVsockConduitRejectsOversizeFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	receiver := &VsockConduit{conn: server}

	// Write a length prefix claiming more than the frame cap.
	go func() {
		client.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}()

	if _, err := receiver.Receive(); err == nil {
		t.Error("Receive() accepted an oversize frame header")
	}
}

func TestVsockConduitPoisonedFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	receiver := &VsockConduit{conn: server}

	// A well-framed payload that is not valid CBOR.
	go func() {
		client.Write([]byte{0x00, 0x00, 0x00, 0x04})
		client.Write([]byte{0xde, 0xad, 0xbe, 0xef})
	}()

	_, err := receiver.Receive()
	if !errors.Is(err, cpor.ErrSerialization) {
		t.Errorf("Receive() error = %v, want ErrSerialization", err)
	}
}
