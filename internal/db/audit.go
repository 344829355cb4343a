package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

const (
	AuditStatusOK    = "OK"
	AuditStatusError = "ERROR"
)

// AuditEntry is one append-only row in audit_logs. The deletion counters are
// zero for events that do not delete anything.
type AuditEntry struct {
	ID                int64     `json:"id,omitempty"`
	EventName         string    `json:"event_name"`
	OccurredAt        time.Time `json:"occurred_at"`
	Status            string    `json:"status"`
	Message           string    `json:"message,omitempty"`
	ProfilesDeleted   int64     `json:"profiles_deleted"`
	VisitsDeleted     int64     `json:"visits_deleted"`
	DependentsDeleted int64     `json:"dependents_deleted"`
}

// LogAudit appends e to audit_logs. It never fails the caller: a write
// error is logged and dropped.
func (g *Gateway) LogAudit(ctx context.Context, e AuditEntry) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = AuditStatusOK
	}

	var msg any
	if e.Message != "" {
		msg = e.Message
	}

	_, err := g.Conn.Exec(ctx, "LogAudit", `
INSERT INTO audit_logs(
  event_name, occurred_at_ms, status, message,
  profiles_deleted, visits_deleted, dependents_deleted
) VALUES (?, ?, ?, ?, ?, ?, ?);
`, e.EventName, e.OccurredAt.UTC().UnixMilli(), e.Status, msg,
		e.ProfilesDeleted, e.VisitsDeleted, e.DependentsDeleted,
	)
	if err != nil {
		g.logger.Error("audit write failed",
			zap.String("event", e.EventName),
			zap.String("status", e.Status),
			zap.Error(err),
		)
	}
}

// ListAudit returns the most recent audit entries, newest first.
func (g *Gateway) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var out []AuditEntry
	err := g.Conn.Query(ctx, "ListAudit", `
SELECT id, event_name, occurred_at_ms, status, message,
       profiles_deleted, visits_deleted, dependents_deleted
FROM audit_logs
ORDER BY occurred_at_ms DESC, id DESC
LIMIT ?;
`, func(rows *sql.Rows) error {
		var (
			e   AuditEntry
			at  int64
			msg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EventName, &at, &e.Status, &msg,
			&e.ProfilesDeleted, &e.VisitsDeleted, &e.DependentsDeleted); err != nil {
			return err
		}
		e.OccurredAt = time.UnixMilli(at).UTC()
		e.Message = msg.String
		out = append(out, e)
		return nil
	}, limit)
	return out, err
}
