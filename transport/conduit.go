package transport

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/hearthlink/cpor"
)

// NATSConfig holds NATS conduit settings.
type NATSConfig struct {
	URL                 string `yaml:"url"`
	CredentialsFile     string `yaml:"credentials_file"`
	ReconnectWaitMillis int    `yaml:"reconnect_wait_ms"`
	MaxReconnects       int    `yaml:"max_reconnects"`

	// SubjectPrefix is prepended to every session subject.
	// Defaults to "cpor".
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Conduit delivers CPOR frames over NATS subjects, one subject per
// session and direction.
type Conduit struct {
	conn   *nats.Conn
	prefix string
	subs   []*nats.Subscription
}

// NewConduit connects to NATS and returns a frame conduit.
func NewConduit(cfg NATSConfig) (*Conduit, error) {
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "cpor"
	}

	opts := []nats.Option{
		nats.Name("cpor-conduit"),
		nats.ReconnectWait(time.Duration(cfg.ReconnectWaitMillis) * time.Millisecond),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err == nil {
			opts = append(opts, nats.UserCredentials(cfg.CredentialsFile))
		}
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Conduit{conn: conn, prefix: prefix}, nil
}

// SessionSubject returns the subject frames for a session travel on,
// direction being "to_server" or "to_client".
func (c *Conduit) SessionSubject(sessionID, direction string) string {
	return fmt.Sprintf("%s.session.%s.%s", c.prefix, sessionID, direction)
}

// Publish encodes msg canonically and publishes it on the session
// subject. An invalid message is rejected before anything is sent.
func (c *Conduit) Publish(sessionID, direction string, msg cpor.Message) error {
	data, err := cpor.Encode(msg)
	if err != nil {
		return err
	}

	subject := c.SessionSubject(sessionID, direction)
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish frame: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("type", string(msg.MessageType())).
		Int("size", len(data)).
		Msg("Published frame")
	return nil
}

// Subscribe parses each frame arriving for the session and hands it to
// handler. Frames that fail to parse are poisoned: they are dropped and
// logged, never redelivered to the handler.
func (c *Conduit) Subscribe(sessionID, direction string, handler func(cpor.Message)) error {
	subject := c.SessionSubject(sessionID, direction)
	sub, err := c.conn.Subscribe(subject, func(m *nats.Msg) {
		msg, err := cpor.Parse(m.Data)
		if err != nil {
			log.Warn().
				Err(err).
				Str("subject", m.Subject).
				Int("size", len(m.Data)).
				Msg("Dropping unparseable frame")
			return
		}
		handler(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	c.subs = append(c.subs, sub)
	log.Debug().Str("subject", subject).Msg("Subscribed to session frames")
	return nil
}

// IsConnected reports whether the NATS connection is up.
func (c *Conduit) IsConnected() bool {
	return c.conn.IsConnected()
}

// Close drains subscriptions and closes the connection.
func (c *Conduit) Close() error {
	var errs []error
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	c.conn.Close()
	return errors.Join(errs...)
}
