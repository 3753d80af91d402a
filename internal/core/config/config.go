// Package config provides configuration management for QueryKeeper services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment variable viper consults.
const EnvPrefix = "QK"

// Config is the full runtime configuration shared by all subcommands.
type Config struct {
	Server   ServerConfig
	Client   ClientConfig
	Database DatabaseConfig
	Log      LogConfig

	// FieldsPath points at a YAML or JSON field registry document.
	// Empty selects the embedded default registry.
	FieldsPath string
}

// ServerConfig holds configuration for the HTTP persistence service and
// the gRPC rule-tree facade.
type ServerConfig struct {
	Host           string
	HTTPPort       int
	GRPCPort       int
	RequestTimeout time.Duration
	DataDir        string
}

// ClientConfig holds configuration for the persistence client used by the
// editor session and the save/load subcommands.
type ClientConfig struct {
	DataURL string
	Timeout time.Duration
}

// DatabaseConfig selects the storage backend by URL scheme.
type DatabaseConfig struct {
	URL string
}

// LogConfig controls the zap logger built by internal/core/logging.
type LogConfig struct {
	Level  string
	Format string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			HTTPPort:       4001,
			GRPCPort:       50051,
			RequestTimeout: 30 * time.Second,
			DataDir:        "./data",
		},
		Client: ClientConfig{
			DataURL: "http://localhost:4001/api/v1/query",
			Timeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			URL: "sqlite://./data/querykeeper.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// HTTPAddr returns the host:port the HTTP service binds.
func (c ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GRPCAddr returns the host:port the gRPC service binds.
func (c ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports QK_HMAC_SECRET (single) and QK_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)
	single := EnvPrefix + "_HMAC_SECRET"

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check %s and %s_* for conflicts)", secretID, single, single)
		}
		secrets[secretID] = decoded
		return nil
	}

	if val := os.Getenv(single); val != "" {
		if err := add(single, val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old and new keys valid during rotation
	for i := 1; ; i++ {
		key := fmt.Sprintf("%s_%d", single, i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// SigningSecret returns the first secret found in the environment, for
// clients that sign requests with a single key.
// ok is false when no secret is configured.
func SigningSecret() (secretID string, secret []byte, ok bool, err error) {
	val := os.Getenv(EnvPrefix + "_HMAC_SECRET")
	if val == "" {
		val = os.Getenv(EnvPrefix + "_HMAC_SECRET_1")
	}
	if val == "" {
		return "", nil, false, nil
	}
	secretID, secret, err = ParseHMACSecretWithID(val)
	if err != nil {
		return "", nil, false, err
	}
	return secretID, secret, true, nil
}

// ParseHMACSecret decodes a base64-encoded HMAC secret.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 lowercase hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}
