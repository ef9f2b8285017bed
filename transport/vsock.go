package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/mdlayher/vsock"
	"github.com/rs/zerolog/log"

	"github.com/hearthlink/cpor"
)

// maxFrameSize bounds a single length-prefixed frame.
const maxFrameSize = 10 * 1024 * 1024

// VsockConfig holds vsock conduit settings.
type VsockConfig struct {
	CID  uint32 `yaml:"cid"`
	Port uint32 `yaml:"port"`
}

// VsockConduit frames CPOR messages over a vsock stream for enclave
// deployments: a 4-byte big-endian length prefix followed by the
// canonical CBOR frame. In development mode it runs over TCP instead.
type VsockConduit struct {
	conn net.Conn
	mu   sync.Mutex
}

// DialVsock connects to a peer over vsock, or over TCP on localhost
// when devMode is set.
func DialVsock(cfg VsockConfig, devMode bool) (*VsockConduit, error) {
	var conn net.Conn
	var err error

	if devMode {
		addr := fmt.Sprintf("localhost:%d", cfg.Port)
		conn, err = net.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to dev peer at %s: %w", addr, err)
		}
		log.Info().Str("addr", addr).Msg("Connected to peer via TCP")
	} else {
		conn, err = vsock.Dial(cfg.CID, cfg.Port, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to CID %d port %d: %w", cfg.CID, cfg.Port, err)
		}
		log.Info().Uint32("cid", cfg.CID).Uint32("port", cfg.Port).Msg("Connected to peer via vsock")
	}

	return &VsockConduit{conn: conn}, nil
}

// Send encodes msg canonically and writes it as one frame.
func (c *VsockConduit) Send(msg cpor.Message) error {
	data, err := cpor.Encode(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := binary.Write(c.conn, binary.BigEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("failed to write frame length: %w", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Receive reads one frame and parses it. A frame that fails to parse
// is returned as an error; the stream itself stays usable.
func (c *VsockConduit) Receive() (cpor.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var length uint32
	if err := binary.Read(c.conn, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read frame length: %w", err)
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame too large: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	return cpor.Parse(data)
}

// Close closes the underlying stream.
func (c *VsockConduit) Close() error {
	return c.conn.Close()
}
