package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hearthlink/cpor"
	"github.com/hearthlink/cpor/crypto"
	"github.com/hearthlink/cpor/transport"
)

// responder implements the server side of session establishment:
// it answers connect and resume requests on a well-known subject and
// then services each accepted session on its own subject pair.
type responder struct {
	pubkey  []byte
	store   *transport.SessionStore
	conduit *transport.Conduit
	maxSize int

	mu       sync.Mutex
	sessions map[string]*transport.Session
}

// listen subscribes to the handshake subject. Session subjects are
// added as sessions are accepted.
func (r *responder) listen(ctx context.Context) error {
	return r.conduit.Subscribe("handshake", "to_server", func(msg cpor.Message) {
		switch m := msg.(type) {
		case *cpor.ConnectRequest:
			r.handleConnect(ctx, m)
		case *cpor.ResumeRequest:
			r.handleResume(ctx, m)
		default:
			log.Warn().
				Str("type", string(msg.MessageType())).
				Msg("Unexpected message on handshake subject")
		}
	})
}

func (r *responder) handleConnect(ctx context.Context, req *cpor.ConnectRequest) {
	session := transport.NewSession(req.ClientID, req.Nonce, r.store)

	resp, err := cpor.NewConnectResponse(cpor.ConnectResponse{
		SessionID:      session.ID(),
		ServerPubkey:   r.pubkey,
		Accepted:       true,
		StatusCode:     200,
		MaxMessageSize: int64(r.maxSize),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to build connect response")
		return
	}

	if err := r.serve(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID()).Msg("Failed to start session")
		return
	}
	if err := r.conduit.Publish("handshake", "to_client", resp); err != nil {
		log.Error().Err(err).Msg("Failed to publish connect response")
		return
	}

	log.Info().
		Str("session_id", session.ID()).
		Str("client_id", req.ClientID).
		Bool("registration", req.RegistrationFlag).
		Msg("Session established")
}

func (r *responder) handleResume(ctx context.Context, req *cpor.ResumeRequest) {
	nonce, err := crypto.GenerateNonce(cpor.MinNonceSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate server nonce")
		return
	}

	session, err := r.lookupByClient(ctx, req.ClientID)
	if err != nil {
		// Rejections still carry a session_id; "none" marks no session.
		resp, buildErr := cpor.NewResumeResponse(cpor.ResumeResponse{
			SessionID:      "none",
			StatusCode:     404,
			ResumeAccepted: false,
			ServerNonce:    nonce,
			ErrorMessage:   "no session to resume",
		})
		if buildErr != nil {
			log.Error().Err(buildErr).Msg("Failed to build resume rejection")
			return
		}
		if err := r.conduit.Publish("handshake", "to_client", resp); err != nil {
			log.Error().Err(err).Msg("Failed to publish resume rejection")
		}
		return
	}

	session.Acknowledge(req.LastSequenceNumber)
	resp, err := cpor.NewResumeResponse(cpor.ResumeResponse{
		SessionID:      session.ID(),
		StatusCode:     200,
		ResumeSequence: session.LastAcked(),
		ResumeAccepted: true,
		ServerNonce:    nonce,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to build resume response")
		return
	}

	if err := r.serve(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID()).Msg("Failed to restart session")
		return
	}
	if err := r.conduit.Publish("handshake", "to_client", resp); err != nil {
		log.Error().Err(err).Msg("Failed to publish resume response")
	}
}

// serve registers the session and subscribes to its inbound subject.
func (r *responder) serve(ctx context.Context, session *transport.Session) error {
	r.mu.Lock()
	r.sessions[session.ID()] = session
	r.mu.Unlock()

	return r.conduit.Subscribe(session.ID(), "to_server", func(msg cpor.Message) {
		r.dispatch(ctx, session, msg)
	})
}

func (r *responder) dispatch(ctx context.Context, session *transport.Session, msg cpor.Message) {
	switch m := msg.(type) {
	case *cpor.GenericMessage:
		session.Acknowledge(m.SequenceNumber)
		if !m.RequiresAck {
			return
		}
		ack, err := cpor.NewAckMessage(cpor.AckMessage{AckSequence: m.SequenceNumber})
		if err != nil {
			log.Error().Err(err).Msg("Failed to build ack")
			return
		}
		if err := r.conduit.Publish(session.ID(), "to_client", ack); err != nil {
			log.Error().Err(err).Msg("Failed to publish ack")
		}

	case *cpor.HeartbeatMessage:
		if !m.RequiresResponse {
			return
		}
		reply, err := cpor.NewHeartbeatMessage(cpor.HeartbeatMessage{
			HeartbeatID:    m.HeartbeatID,
			ClientSequence: m.ClientSequence,
			ServerSequence: session.LastAcked(),
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to build heartbeat reply")
			return
		}
		if err := r.conduit.Publish(session.ID(), "to_client", reply); err != nil {
			log.Error().Err(err).Msg("Failed to publish heartbeat reply")
		}

	case *cpor.AckMessage:
		session.Acknowledge(m.AckSequence)

	case *cpor.CloseMessage:
		log.Info().
			Str("session_id", session.ID()).
			Str("reason", m.Reason).
			Bool("graceful", m.Graceful).
			Msg("Session closed by peer")
		r.mu.Lock()
		delete(r.sessions, session.ID())
		r.mu.Unlock()
		if err := session.End(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to delete session state")
		}

	default:
		sendError(r.conduit, session.ID(), 400, "unexpected message type", nil)
	}
}

// lookupByClient finds a live session for the client, falling back to
// nothing: resumption across restarts goes through the store via
// transport.ResumeSession when the client supplies a session ID.
func (r *responder) lookupByClient(_ context.Context, clientID string) (*transport.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ClientID() == clientID {
			return s, nil
		}
	}
	return nil, transport.ErrSessionNotFound
}

// checkpoint persists every live session, used on shutdown.
func (r *responder) checkpoint(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if err := s.Checkpoint(ctx); err != nil {
			log.Error().Err(err).Str("session_id", id).Msg("Failed to checkpoint session")
		}
	}
}
