package sqlite

import (
	"context"
	"time"

	dbpkg "github.com/BrandonDHaskell/Frontdesk/server/internal/db"
)

// RetentionStore deletes expired rows. Each method is a single statement
// on the pool so a long purge never holds a transaction across steps.
type RetentionStore struct {
	gw *dbpkg.Gateway
}

func NewRetentionStore(gw *dbpkg.Gateway) *RetentionStore {
	return &RetentionStore{gw: gw}
}

func (s *RetentionStore) DeleteExpiredDependents(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.gw.Exec(ctx, "DeleteExpiredDependents", `
DELETE FROM dependents
WHERE visit_id IN (SELECT id FROM visits WHERE entry_time_ms < ?);
`, cutoff.UTC().UnixMilli())
}

func (s *RetentionStore) DeleteExpiredVisits(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.gw.Exec(ctx, "DeleteExpiredVisits", `
DELETE FROM visits WHERE entry_time_ms < ?;
`, cutoff.UTC().UnixMilli())
}

// DeleteOrphanedVisitors removes visitors left with no visits. Banned
// visitors are kept so the ban outlives their history.
func (s *RetentionStore) DeleteOrphanedVisitors(ctx context.Context) (int64, error) {
	return s.gw.Exec(ctx, "DeleteOrphanedVisitors", `
DELETE FROM visitors
WHERE is_banned = 0
  AND NOT EXISTS (SELECT 1 FROM visits WHERE visits.visitor_id = visitors.id);
`)
}
