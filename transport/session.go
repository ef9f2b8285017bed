package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hearthlink/cpor"
)

// Session tracks the sequencing state for one live session and can
// checkpoint it to a SessionStore for later resumption. Sequence
// numbers start at 1 and are allocated strictly in order.
type Session struct {
	mu    sync.Mutex
	state SessionState
	store *SessionStore
}

// NewSession starts a fresh session for a client. A nil store means
// the session is memory-only and cannot survive a restart.
func NewSession(clientID string, resumeNonce []byte, store *SessionStore) *Session {
	return &Session{
		state: SessionState{
			SessionID:   uuid.New().String(),
			ClientID:    clientID,
			ResumeNonce: resumeNonce,
		},
		store: store,
	}
}

// ResumeSession rehydrates a session from the store.
func ResumeSession(ctx context.Context, store *SessionStore, sessionID string) (*Session, error) {
	state, err := store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", sessionID).
		Int64("last_sent", state.LastSent).
		Int64("last_acked", state.LastAcked).
		Msg("Resumed session")
	return &Session{state: *state, store: store}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.state.SessionID
}

// ClientID returns the owning client identifier.
func (s *Session) ClientID() string {
	return s.state.ClientID
}

// NextSequence allocates the next outbound sequence number.
func (s *Session) NextSequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastSent++
	return s.state.LastSent
}

// Acknowledge records the peer's cumulative acknowledgement. An ack
// behind the current high-water mark is ignored.
func (s *Session) Acknowledge(sequence int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sequence > s.state.LastAcked {
		s.state.LastAcked = sequence
	}
}

// LastAcked returns the peer's cumulative acknowledgement.
func (s *Session) LastAcked() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastAcked
}

// NextMessage builds a sequenced data message carrying payload, with a
// fresh message ID and timestamp.
func (s *Session) NextMessage(payload []byte, requiresAck bool) (*cpor.GenericMessage, error) {
	return cpor.NewGenericMessage(cpor.GenericMessage{
		Header: cpor.Header{
			MessageID: uuid.New().String(),
			Timestamp: time.Now().Unix(),
		},
		SequenceNumber: s.NextSequence(),
		Payload:        payload,
		RequiresAck:    requiresAck,
	})
}

// ResumeFrom builds the resume request a client sends after a
// disconnect, carrying the last sequence it saw.
func (s *Session) ResumeFrom() (*cpor.ResumeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cpor.NewResumeRequest(cpor.ResumeRequest{
		ClientID:           s.state.ClientID,
		LastSequenceNumber: s.state.LastAcked,
		ClientNonce:        s.state.ResumeNonce,
	})
}

// Checkpoint persists the current state. It is an error to checkpoint
// a memory-only session.
func (s *Session) Checkpoint(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("session %s has no backing store", s.state.SessionID)
	}
	s.mu.Lock()
	snapshot := s.state
	s.mu.Unlock()
	return s.store.Save(ctx, &snapshot)
}

// End deletes the persisted state, if any.
func (s *Session) End(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	_, err := s.store.Delete(ctx, s.state.SessionID)
	return err
}
