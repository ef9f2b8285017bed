// Command cpord runs a minimal CPOR responder: it accepts connect
// requests arriving over NATS, establishes sessions, echoes sequenced
// data messages back as acknowledgements, and answers heartbeats.
// It exists to exercise the protocol stack end to end; real
// deployments embed the cpor packages directly.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hearthlink/cpor"
	"github.com/hearthlink/cpor/config"
	"github.com/hearthlink/cpor/crypto"
	"github.com/hearthlink/cpor/transport"
)

// Version is set at build time
var Version = "dev"

func main() {
	configPath := flag.String("config", "/etc/cpor/cpord.yaml", "Path to configuration file")
	natsURL := flag.String("nats-url", "nats://localhost:4222", "NATS server URL")
	storePath := flag.String("store", "cpord.db", "Path to the session store database")
	requireHW := flag.Bool("require-hardware", false, "Refuse software key fallback")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().
		Str("version", Version).
		Str("config", *configPath).
		Msg("cpord starting")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	var opts []crypto.Option
	if *requireHW || cfg.Crypto.RequireHardware {
		opts = append(opts, crypto.WithRequireHardware())
	}
	manager := crypto.NewManager(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage := crypto.StorageSoftware
	if cfg.Crypto.KeyStorage == "tpm" {
		storage = crypto.StorageTPM
	}
	serverKey, err := manager.GenerateKeyPair(ctx, "cpord-server", storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate server key")
	}
	log.Info().
		Str("key_id", serverKey.KeyID).
		Str("storage", string(serverKey.Storage)).
		Msg("Server signing key ready")

	store, err := transport.NewSessionStore(*storePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer store.Close()

	conduit, err := transport.NewConduit(transport.NATSConfig{URL: *natsURL})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer conduit.Close()

	responder := &responder{
		pubkey:   serverKey.PublicKey,
		store:    store,
		conduit:  conduit,
		maxSize:  cfg.Network.MaxMessageSize,
		sessions: map[string]*transport.Session{},
	}
	if err := responder.listen(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start responder")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	cancel()

	responder.checkpoint(context.Background())
	log.Info().Msg("cpord stopped")
}

func severityFor(err error) string {
	if err != nil {
		return "error"
	}
	return "warning"
}

// sendError publishes a protocol error frame, logging if even that fails.
func sendError(c *transport.Conduit, sessionID string, code int64, msg string, cause error) {
	frame, err := cpor.NewErrorMessage(cpor.ErrorMessage{
		ErrorCode:    code,
		ErrorMessage: msg,
		Severity:     severityFor(cause),
		Recoverable:  true,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to build error frame")
		return
	}
	if err := c.Publish(sessionID, "to_client", frame); err != nil {
		log.Error().Err(err).Msg("Failed to publish error frame")
	}
}
