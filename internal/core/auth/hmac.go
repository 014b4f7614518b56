package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/core/config"
)

const (
	keyPrefix     = "pk"
	keyVersion    = "v1"
	randomDataLen = 64 // hex chars, 256 bits
)

// ParseAPIKey extracts secret_id and random_data from an API key.
// Format: pk-v1-<secret_id>-<random_data> (103 chars total).
func ParseAPIKey(key string) (secretID, randomData string, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 || parts[0] != keyPrefix || parts[1] != keyVersion {
		return "", "", ErrInvalidKeyFormat
	}

	secretID, randomData = parts[2], parts[3]
	if len(secretID) != 32 || len(randomData) != randomDataLen {
		return "", "", ErrInvalidKeyFormat
	}
	if !config.IsLowerHex(secretID) || !config.IsLowerHex(randomData) {
		return "", "", ErrInvalidKeyFormat
	}
	return secretID, randomData, nil
}

// ComputeHMAC computes the HMAC-SHA256 of an API key. The result is what
// api_keys.key_hash stores.
func ComputeHMAC(secret []byte, apiKey string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(apiKey))
	return h.Sum(nil)
}

// FormatAPIKey constructs an API key from its components.
func FormatAPIKey(secretID, randomData string) string {
	return fmt.Sprintf("%s-%s-%s-%s", keyPrefix, keyVersion, secretID, randomData)
}

// GenerateAPIKey returns a fresh key bound to secretID.
func GenerateAPIKey(secretID string) (string, error) {
	buf := make([]byte, randomDataLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}
	return FormatAPIKey(secretID, hex.EncodeToString(buf)), nil
}

// NewestSecretID picks the secret new keys are issued under. Secret ids
// are UUIDv7 hex, so the greatest id is the most recently minted.
func NewestSecretID(secrets map[string][]byte) (string, error) {
	if len(secrets) == 0 {
		return "", ErrNoSecrets
	}
	ids := make([]string, 0, len(secrets))
	for id := range secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[len(ids)-1], nil
}
