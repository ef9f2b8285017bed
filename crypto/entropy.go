package crypto

import (
	"crypto/rand"
	"io"
	"os"
	"sync"

	"github.com/hf/nsm"
	"github.com/rs/zerolog/log"
)

// nsmDevicePath is where the Nitro Security Module appears inside an
// enclave. When present, nonces are drawn from the NSM hardware RNG
// instead of the kernel CSPRNG.
const nsmDevicePath = "/dev/nsm"

var (
	entropyOnce   sync.Once
	entropySource io.Reader
)

// entropy returns the process-wide random source for nonce and session
// key generation.
func entropy() io.Reader {
	entropyOnce.Do(func() {
		entropySource = openEntropy()
	})
	return entropySource
}

func openEntropy() io.Reader {
	if _, err := os.Stat(nsmDevicePath); err != nil {
		return rand.Reader
	}
	sess, err := nsm.OpenDefaultSession()
	if err != nil {
		log.Warn().Err(err).Msg("NSM present but session open failed, using kernel CSPRNG")
		return rand.Reader
	}
	log.Info().Msg("Using NSM hardware RNG for nonce generation")
	return sess
}
