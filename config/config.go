// Package config loads and validates CPOR runtime configuration:
// network, crypto and security parameters supplied to session setup.
// Values come from defaults, an optional YAML file, an optional remote
// fetcher, and CPOR_-prefixed environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is the top-level CPOR configuration.
type Config struct {
	// Environment is the runtime environment name.
	Environment string `yaml:"environment"`

	// Version is the protocol generation this node speaks.
	Version string `yaml:"version"`

	Network  NetworkConfig  `yaml:"network"`
	Crypto   CryptoConfig   `yaml:"crypto"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
}

// NetworkConfig holds connection parameters.
type NetworkConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	MaxConnections           int    `yaml:"max_connections"`
	ConnectionTimeoutSeconds int    `yaml:"connection_timeout_seconds"`
	KeepaliveIntervalSeconds int    `yaml:"keepalive_interval_seconds"`
	MaxMessageSize           int    `yaml:"max_message_size"`
}

// CryptoConfig holds key storage and key material parameters.
type CryptoConfig struct {
	// KeyStorage selects the default key storage kind, "software" or "tpm".
	KeyStorage string `yaml:"key_storage"`

	// TPMDevice is the hardware key store device path, when applicable.
	TPMDevice string `yaml:"tpm_device"`

	// RequireHardware turns the tpm-unavailable software fallback into
	// a hard error.
	RequireHardware bool `yaml:"require_hardware"`

	NonceSize                  int    `yaml:"nonce_size"`
	SessionKeySize             int    `yaml:"session_key_size"`
	SignatureAlgorithm         string `yaml:"signature_algorithm"`
	EnableKeyRotation          bool   `yaml:"enable_key_rotation"`
	KeyRotationIntervalSeconds int    `yaml:"key_rotation_interval_seconds"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	ConsoleOutput bool   `yaml:"console_output"`
}

// SecurityConfig holds transport security requirements. TLS itself is a
// deployment concern; these values are only validated and handed to the
// transport layer.
type SecurityConfig struct {
	RequireTLS            bool     `yaml:"require_tls"`
	AllowedCipherSuites   []string `yaml:"allowed_cipher_suites"`
	CertificatePath       string   `yaml:"certificate_path"`
	PrivateKeyPath        string   `yaml:"private_key_path"`
	MaxAuthAttempts       int      `yaml:"max_auth_attempts"`
	SessionTimeoutSeconds int      `yaml:"session_timeout_seconds"`
}

// DefaultConfig returns the development defaults.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Version:     "CPOR-2",
		Network: NetworkConfig{
			Host:                     "localhost",
			Port:                     8443,
			MaxConnections:           100,
			ConnectionTimeoutSeconds: 30,
			KeepaliveIntervalSeconds: 60,
			MaxMessageSize:           1 << 20,
		},
		Crypto: CryptoConfig{
			KeyStorage:                 "software",
			NonceSize:                  16,
			SessionKeySize:             32,
			SignatureAlgorithm:         "Ed25519",
			EnableKeyRotation:          true,
			KeyRotationIntervalSeconds: 86400,
		},
		Logging: LoggingConfig{
			Level:         "info",
			ConsoleOutput: true,
		},
		Security: SecurityConfig{
			RequireTLS:            true,
			AllowedCipherSuites:   []string{"TLS_AES_256_GCM_SHA384", "TLS_CHACHA20_POLY1305_SHA256"},
			MaxAuthAttempts:       3,
			SessionTimeoutSeconds: 3600,
		},
	}
}

// LoadConfig builds a configuration from defaults, then the YAML file
// at path (missing file means defaults), then environment overrides.
// The result is validated before being returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge applies YAML overrides (for example fetched from a remote
// source) on top of the current values.
func (c *Config) Merge(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config overrides: %w", err)
	}
	return nil
}

// applyEnv applies CPOR_-prefixed environment variable overrides.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("CPOR_HOST"); ok {
		c.Network.Host = v
	}
	if v, ok := os.LookupEnv("CPOR_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Network.Port = port
		} else {
			log.Warn().Str("value", v).Msg("Ignoring non-numeric CPOR_PORT")
		}
	}
	if v, ok := os.LookupEnv("CPOR_KEY_STORAGE"); ok {
		c.Crypto.KeyStorage = v
	}
	if v, ok := os.LookupEnv("CPOR_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv("CPOR_REQUIRE_TLS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Security.RequireTLS = b
		} else {
			log.Warn().Str("value", v).Msg("Ignoring non-boolean CPOR_REQUIRE_TLS")
		}
	}
}

// Validate checks every constraint, returning the first violation.
func (c *Config) Validate() error {
	if c.Version != "CPOR-2" {
		return fmt.Errorf("config: unsupported protocol version %q", c.Version)
	}
	if c.Network.Host == "" {
		return fmt.Errorf("config: network host must be a non-empty string")
	}
	if c.Network.Port < 1 || c.Network.Port > 65535 {
		return fmt.Errorf("config: network port must be in 1..65535, got %d", c.Network.Port)
	}
	if c.Network.MaxConnections < 1 {
		return fmt.Errorf("config: max_connections must be at least 1")
	}
	if c.Network.MaxMessageSize < 1024 {
		return fmt.Errorf("config: max_message_size must be at least 1024 bytes")
	}

	switch c.Crypto.KeyStorage {
	case "software":
	case "tpm":
		if c.Crypto.TPMDevice == "" {
			log.Warn().Msg("TPM storage selected but no TPM device specified, will use default")
		}
	default:
		return fmt.Errorf("config: key_storage must be \"software\" or \"tpm\", got %q", c.Crypto.KeyStorage)
	}
	if c.Crypto.SignatureAlgorithm != "Ed25519" {
		return fmt.Errorf("config: only the Ed25519 signature algorithm is supported")
	}
	if c.Crypto.NonceSize < 8 || c.Crypto.NonceSize > 64 {
		return fmt.Errorf("config: nonce_size must be in 8..64, got %d", c.Crypto.NonceSize)
	}
	if c.Crypto.SessionKeySize < 16 || c.Crypto.SessionKeySize > 64 {
		return fmt.Errorf("config: session_key_size must be in 16..64, got %d", c.Crypto.SessionKeySize)
	}
	if c.Crypto.EnableKeyRotation && c.Crypto.KeyRotationIntervalSeconds < 3600 {
		return fmt.Errorf("config: key_rotation_interval_seconds must be at least 3600")
	}

	if c.Security.RequireTLS {
		for _, path := range []string{c.Security.CertificatePath, c.Security.PrivateKeyPath} {
			if path == "" {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("config: TLS file not found: %s", path)
			}
			if info.IsDir() {
				return fmt.Errorf("config: TLS path is not a file: %s", path)
			}
		}
	}
	return nil
}
