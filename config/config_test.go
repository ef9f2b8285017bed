package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.Version != "CPOR-2" {
		t.Errorf("Version = %q, want CPOR-2", cfg.Version)
	}
	if cfg.Crypto.KeyStorage != "software" {
		t.Errorf("KeyStorage = %q, want software", cfg.Crypto.KeyStorage)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Network.Port != DefaultConfig().Network.Port {
		t.Errorf("Port = %d, want default %d", cfg.Network.Port, DefaultConfig().Network.Port)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpor.yaml")
	doc := `
environment: production
network:
  host: cpor.example.com
  port: 9443
crypto:
  key_storage: tpm
  tpm_device: /dev/tpmrm0
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Network.Host != "cpor.example.com" || cfg.Network.Port != 9443 {
		t.Errorf("network = %s:%d, want cpor.example.com:9443", cfg.Network.Host, cfg.Network.Port)
	}
	if cfg.Crypto.KeyStorage != "tpm" {
		t.Errorf("KeyStorage = %q, want tpm", cfg.Crypto.KeyStorage)
	}
	// Values the file does not mention keep their defaults.
	if cfg.Crypto.NonceSize != 16 {
		t.Errorf("NonceSize = %d, want default 16", cfg.Crypto.NonceSize)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CPOR_HOST", "env-host")
	t.Setenv("CPOR_PORT", "1234")
	t.Setenv("CPOR_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Network.Host != "env-host" {
		t.Errorf("Host = %q, want env-host", cfg.Network.Host)
	}
	if cfg.Network.Port != 1234 {
		t.Errorf("Port = %d, want 1234", cfg.Network.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadConfigIgnoresBadEnvValues(t *testing.T) {
	t.Setenv("CPOR_PORT", "not-a-port")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Network.Port != DefaultConfig().Network.Port {
		t.Errorf("Port = %d, want default retained", cfg.Network.Port)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"wrong version", func(c *Config) { c.Version = "CPOR-1" }, "unsupported protocol version"},
		{"empty host", func(c *Config) { c.Network.Host = "" }, "network host"},
		{"port too low", func(c *Config) { c.Network.Port = 0 }, "port must be in 1..65535"},
		{"port too high", func(c *Config) { c.Network.Port = 70000 }, "port must be in 1..65535"},
		{"bad key storage", func(c *Config) { c.Crypto.KeyStorage = "vault" }, "key_storage"},
		{"bad algorithm", func(c *Config) { c.Crypto.SignatureAlgorithm = "RSA" }, "Ed25519"},
		{"nonce too small", func(c *Config) { c.Crypto.NonceSize = 4 }, "nonce_size"},
		{"session key too small", func(c *Config) { c.Crypto.SessionKeySize = 8 }, "session_key_size"},
		{"rotation too frequent", func(c *Config) { c.Crypto.KeyRotationIntervalSeconds = 60 }, "key_rotation_interval_seconds"},
		{"missing TLS cert", func(c *Config) { c.Security.CertificatePath = "/no/such/cert.pem" }, "TLS file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestMergeOverrides(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Merge([]byte("network:\n  port: 5555\n")); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if cfg.Network.Port != 5555 {
		t.Errorf("Port = %d, want 5555", cfg.Network.Port)
	}
	if cfg.Network.Host != "localhost" {
		t.Errorf("Host = %q, want untouched default", cfg.Network.Host)
	}

	if err := cfg.Merge([]byte(":::bad yaml")); err == nil {
		t.Error("Merge() accepted malformed YAML")
	}
}

type staticFetcher struct {
	data []byte
	err  error
}

func (f staticFetcher) Fetch(context.Context) ([]byte, error) { return f.data, f.err }

func TestLoadRemote(t *testing.T) {
	cfg := DefaultConfig()
	err := LoadRemote(context.Background(), staticFetcher{data: []byte("network:\n  port: 7777\n")}, cfg)
	if err != nil {
		t.Fatalf("LoadRemote() error = %v", err)
	}
	if cfg.Network.Port != 7777 {
		t.Errorf("Port = %d, want 7777", cfg.Network.Port)
	}

	// No remote document means no change and no error.
	before := cfg.Network.Port
	if err := LoadRemote(context.Background(), staticFetcher{}, cfg); err != nil {
		t.Fatalf("LoadRemote(empty) error = %v", err)
	}
	if cfg.Network.Port != before {
		t.Error("LoadRemote(empty) modified the config")
	}

	// Overrides that break validation are rejected.
	err = LoadRemote(context.Background(), staticFetcher{data: []byte("network:\n  port: 0\n")}, cfg)
	if err == nil {
		t.Error("LoadRemote() accepted an invalid override")
	}
}
