package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// APIKey is an issued API key without its secret material. Only the
// HMAC of the key is stored.
type APIKey struct {
	ID         string
	TenantID   string
	Name       string
	SecretID   string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

type apiKeyRow struct {
	ID         string         `db:"api_key_id"`
	TenantID   string         `db:"tenant_id"`
	Name       string         `db:"name"`
	SecretID   string         `db:"secret_id"`
	CreatedAt  string         `db:"created_at"`
	LastUsedAt sql.NullString `db:"last_used_at"`
	RevokedAt  sql.NullString `db:"revoked_at"`
}

// APIKeyStore persists API keys in the api_keys table.
type APIKeyStore struct {
	q *Queries
}

// NewAPIKeyStore returns a store over q.
func NewAPIKeyStore(q *Queries) *APIKeyStore {
	return &APIKeyStore{q: q}
}

// Insert stores a key under its HMAC hash.
func (s *APIKeyStore) Insert(ctx context.Context, key APIKey, hash []byte) error {
	_, err := s.q.Exec(ctx, "insert-api-key",
		key.ID, key.TenantID, key.Name, key.SecretID, hash, formatTime(key.CreatedAt))
	return errors.Wrap(err, "insert api key")
}

// LookupByHash returns nil, nil when no key has the hash.
func (s *APIKeyStore) LookupByHash(ctx context.Context, hash []byte) (*APIKey, error) {
	var row apiKeyRow
	err := s.q.Get(ctx, "get-api-key-by-hash", &row, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup api key")
	}
	key, err := row.toAPIKey()
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// TouchLastUsed records a successful authentication.
func (s *APIKeyStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := s.q.Exec(ctx, "update-last-used", formatTime(at), id)
	return errors.Wrap(err, "update api key last_used_at")
}

// List returns the keys of a tenant, revoked ones included.
func (s *APIKeyStore) List(ctx context.Context, tenantID string) ([]APIKey, error) {
	var rows []apiKeyRow
	if err := s.q.Select(ctx, "list-api-keys", &rows, tenantID); err != nil {
		return nil, errors.Wrap(err, "list api keys")
	}
	out := make([]APIKey, 0, len(rows))
	for _, row := range rows {
		key, err := row.toAPIKey()
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}

// Revoke reports whether an unrevoked key was revoked.
func (s *APIKeyStore) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.q.Exec(ctx, "revoke-api-key", formatTime(at), id)
	if err != nil {
		return false, errors.Wrap(err, "revoke api key")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "revoke api key")
	}
	return n > 0, nil
}

func (row apiKeyRow) toAPIKey() (APIKey, error) {
	key := APIKey{
		ID:       row.ID,
		TenantID: row.TenantID,
		Name:     row.Name,
		SecretID: row.SecretID,
	}
	created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return APIKey{}, errors.Wrapf(err, "api key %s: bad created_at", row.ID)
	}
	key.CreatedAt = created
	if key.LastUsedAt, err = parseNullTime(row.LastUsedAt); err != nil {
		return APIKey{}, errors.Wrapf(err, "api key %s: bad last_used_at", row.ID)
	}
	if key.RevokedAt, err = parseNullTime(row.RevokedAt); err != nil {
		return APIKey{}, errors.Wrapf(err, "api key %s: bad revoked_at", row.ID)
	}
	return key, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
