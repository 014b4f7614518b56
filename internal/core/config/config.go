// Package config provides configuration management for PromoKeeper services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config is the full service configuration.
type Config struct {
	API      APIConfig
	Database DatabaseConfig
	Catalog  CatalogConfig
	Log      LogConfig
	Tracing  TracingConfig
}

// APIConfig holds configuration for the gRPC promotion API service.
type APIConfig struct {
	Host           string        `validate:"required"`
	Port           int           `validate:"min=1,max=65535"`
	MetricsPort    int           `validate:"min=0,max=65535"`
	MaxConnections int           `validate:"gt=0"`
	RequestTimeout time.Duration `validate:"gt=0"`
	DataDir        string        `validate:"required"`
}

// DatabaseConfig selects the database holding promotions and API keys.
// Commands that touch storage refuse to run with an empty URL.
type DatabaseConfig struct {
	URL string `validate:"omitempty,dburl"`
}

// CatalogConfig points at an attribute catalog file. Empty uses the
// built-in catalog.
type CatalogConfig struct {
	Path string
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json text"`
}

// TracingConfig enables the stdout span exporter.
type TracingConfig struct {
	Enabled     bool
	ServiceName string `validate:"required_if=Enabled true"`
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			MetricsPort:    9090,
			MaxConnections: 1000,
			RequestTimeout: 30 * time.Second,
			DataDir:        "./data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "promokeeper",
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports PK_HMAC_SECRET (single) and PK_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key string) (bool, error) {
		val := os.Getenv(key)
		if val == "" {
			return false, nil
		}
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return false, errors.Wrap(err, key)
		}
		if _, exists := secrets[secretID]; exists {
			return false, errors.Errorf("duplicate secret_id '%s' found in environment variables (check PK_HMAC_SECRET and PK_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return true, nil
	}

	// Format: <secret_id>:<base64_secret>
	if _, err := add("PK_HMAC_SECRET"); err != nil {
		return nil, err
	}

	// Numbered secrets stop at the first gap.
	// Multiple secrets enable rotation: old and new keys valid during migration
	for i := 1; ; i++ {
		found, err := add(fmt.Sprintf("PK_HMAC_SECRET_%d", i))
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}
	}

	return secrets, nil
}

// ParseHMACSecret decodes a base64-encoded HMAC secret.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64 encoding")
	}
	if len(decoded) < 32 {
		return nil, errors.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, errors.New("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, errors.New("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	if !IsLowerHex(secretID) {
		return "", nil, errors.New("secret_id must be hex chars only")
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}
	return secretID, secret, nil
}

// IsLowerHex reports whether s is non-empty and only holds 0-9a-f.
func IsLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
