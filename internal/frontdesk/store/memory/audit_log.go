package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/db"
)

// AuditLog is an in-memory append-only audit trail for tests and dev.
type AuditLog struct {
	mu      sync.Mutex
	entries []db.AuditEntry
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) LogAudit(_ context.Context, e db.AuditEntry) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = db.AuditStatusOK
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	e.ID = int64(len(l.entries) + 1)
	l.entries = append(l.entries, e)
}

// ListAudit returns up to limit entries, newest first.
func (l *AuditLog) ListAudit(_ context.Context, limit int) ([]db.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]db.AuditEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

// Entries returns a copy of everything logged, oldest first. Test-only helper.
func (l *AuditLog) Entries() []db.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]db.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
