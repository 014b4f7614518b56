package api

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// AuditEntry is one line of the audit log.
type AuditEntry struct {
	Time        time.Time `json:"time"`
	TenantID    string    `json:"tenantId"`
	Action      string    `json:"action"`
	PromotionID string    `json:"promotionId"`
	Name        string    `json:"name,omitempty"`
}

// AuditLog appends promotion changes to <dir>/<YYYY-MM-DD>.jsonl.
// Writes are best effort: the repository is the source of truth and a
// failed append is only logged.
type AuditLog struct {
	dir string
	log zerolog.Logger
	now func() time.Time

	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

// NewAuditLog creates dir if needed.
func NewAuditLog(dir string, log zerolog.Logger) (*AuditLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create audit directory")
	}
	return &AuditLog{
		dir:     dir,
		log:     log,
		now:     time.Now,
		mutexes: make(map[string]*sync.Mutex),
	}, nil
}

// Path returns the file entries stamped at t go to.
func (a *AuditLog) Path(t time.Time) string {
	return filepath.Join(a.dir, t.UTC().Format(time.DateOnly)+".jsonl")
}

// Record stamps and appends one entry.
func (a *AuditLog) Record(tenantID, action, promotionID, name string) {
	if a == nil {
		return
	}
	entry := AuditEntry{
		Time:        a.now().UTC(),
		TenantID:    tenantID,
		Action:      action,
		PromotionID: promotionID,
		Name:        name,
	}
	path := a.Path(entry.Time)

	mu := a.fileMutex(path)
	mu.Lock()
	defer mu.Unlock()

	if err := appendJSONL(path, entry); err != nil {
		a.log.Warn().Err(err).Str("path", path).Str("action", action).Msg("audit append failed")
	}
}

// fileMutex grows by one entry per day of uptime.
func (a *AuditLog) fileMutex(path string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	mu, ok := a.mutexes[path]
	if !ok {
		mu = &sync.Mutex{}
		a.mutexes[path] = mu
	}
	return mu
}

func appendJSONL(path string, v any) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
