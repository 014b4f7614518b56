package types

import "github.com/google/uuid"

// NewID generates a UUIDv7 identifier for promotions, rules, rule groups
// and conditions.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ParseID validates a UUID string.
// Rejects malformed UUIDs to prevent invalid IDs from entering storage.
func ParseID(s string) (string, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return s, nil
}
