package auth

import "github.com/pkg/errors"

// Authentication failures. Missing, malformed and unknown keys map to
// UNAUTHENTICATED without confirming whether a key exists. Revoked keys
// map to PERMISSION_DENIED. Key store failures map to UNAVAILABLE.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
	ErrKeyStore         = errors.New("key store unavailable")
	ErrNoSecrets        = errors.New("no HMAC secrets configured (set PK_HMAC_SECRET)")
)
