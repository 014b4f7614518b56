// Package auth provides HMAC-based API key authentication for the gRPC
// promotion API. Each key belongs to one tenant; the interceptor puts the
// tenant id on the request context.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/solatis/promokeeper/internal/core/db"
	"github.com/solatis/promokeeper/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const tenantIDKey = contextKey("tenant_id")

// MetadataKey carries the API key on every call.
const MetadataKey = "x-api-key"

// lastUsedThrottle bounds last_used_at writes to one per key per minute.
const lastUsedThrottle = time.Minute

// KeyStore is the API key storage needed to authenticate.
// Implemented by *db.APIKeyStore.
type KeyStore interface {
	LookupByHash(ctx context.Context, hash []byte) (*db.APIKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// KeyIssuer stores newly issued keys. Implemented by *db.APIKeyStore.
type KeyIssuer interface {
	Insert(ctx context.Context, key db.APIKey, hash []byte) error
}

// Authenticator validates API keys against HMAC secrets held in memory.
type Authenticator struct {
	secrets map[string][]byte
	keys    KeyStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator over secret_id -> secret.
func NewAuthenticator(secrets map[string][]byte, keys KeyStore, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		keys:    keys,
		log:     log,
		now:     time.Now,
	}
}

// Authenticate validates an API key and returns its tenant id.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	key, err := a.keys.LookupByHash(ctx, ComputeHMAC(secret, apiKey))
	if err != nil {
		return "", errors.Wrap(ErrKeyStore, err.Error())
	}
	if key == nil {
		return "", ErrInvalidKey
	}
	if key.RevokedAt != nil {
		return "", ErrKeyRevoked
	}

	now := a.now().UTC()
	if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) > lastUsedThrottle {
		if err := a.keys.TouchLastUsed(ctx, key.ID, now); err != nil {
			a.log.Warn().Err(err).Str("api_key_id", key.ID).Msg("failed to record key use")
		}
	}

	return key.TenantID, nil
}

// Issue generates a key for tenantID under the given secret and stores its
// hash. The returned key is the only copy of the plaintext.
func (a *Authenticator) Issue(ctx context.Context, issuer KeyIssuer, secretID, tenantID, name string) (string, db.APIKey, error) {
	secret, ok := a.secrets[secretID]
	if !ok {
		return "", db.APIKey{}, errors.Wrapf(ErrUnknownKey, "%s", secretID)
	}
	if strings.TrimSpace(tenantID) == "" {
		return "", db.APIKey{}, errors.New("tenant id is required")
	}

	plaintext, err := GenerateAPIKey(secretID)
	if err != nil {
		return "", db.APIKey{}, err
	}
	key := db.APIKey{
		ID:        types.NewID(),
		TenantID:  tenantID,
		Name:      name,
		SecretID:  secretID,
		CreatedAt: a.now().UTC(),
	}
	if err := issuer.Insert(ctx, key, ComputeHMAC(secret, plaintext)); err != nil {
		return "", db.APIKey{}, err
	}
	return plaintext, key, nil
}

// UnaryInterceptor authenticates every call except health checks.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		apiKeys := md.Get(MetadataKey)
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		tenantID, err := a.Authenticate(ctx, apiKeys[0])
		switch {
		case err == nil:
		case errors.Is(err, ErrKeyRevoked):
			return nil, status.Error(codes.PermissionDenied, err.Error())
		case errors.Is(err, ErrKeyStore):
			a.log.Error().Err(err).Str("method", info.FullMethod).Msg("authentication backend failure")
			return nil, status.Error(codes.Unavailable, ErrKeyStore.Error())
		default:
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		return handler(WithTenantID(ctx, tenantID), req)
	}
}

// WithTenantID returns ctx carrying tenantID.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantIDFromContext extracts the tenant id. Returns "" if absent.
func TenantIDFromContext(ctx context.Context) string {
	if tenantID, ok := ctx.Value(tenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}
