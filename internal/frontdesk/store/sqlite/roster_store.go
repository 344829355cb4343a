package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	dbpkg "github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
)

type RosterStore struct {
	gw     *dbpkg.Gateway
	logger *zap.Logger
}

func NewRosterStore(gw *dbpkg.Gateway, logger *zap.Logger) *RosterStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterStore{gw: gw, logger: logger}
}

// ActiveRoster returns every open visit, newest entry first. Banned
// visitors who are still signed in are included.
func (s *RosterStore) ActiveRoster(ctx context.Context) ([]types.VisitRecord, error) {
	return queryRecords(ctx, s.gw.Conn, "ActiveRoster", recordSelect+`
FROM visits vi
JOIN visitors v ON v.id = vi.visitor_id
WHERE vi.exit_time_ms IS NULL
ORDER BY vi.entry_time_ms DESC, vi.id DESC;
`, s.logger)
}

// SearchByName returns one row per visitor whose first or last name
// contains every term (case-sensitive), with their latest visit attached
// when they have one. terms must be non-empty.
func (s *RosterStore) SearchByName(ctx context.Context, terms []string) ([]types.VisitRecord, error) {
	raw, err := json.Marshal(terms)
	if err != nil {
		return nil, fmt.Errorf("SearchByName encode terms: %w", err)
	}

	return queryRecords(ctx, s.gw.Conn, "SearchByName", recordSelect+`
FROM visitors v
LEFT JOIN visits vi ON vi.id = (
  SELECT id FROM visits
  WHERE visitor_id = v.id
  ORDER BY entry_time_ms DESC, id DESC
  LIMIT 1
)
WHERE NOT EXISTS (
  SELECT 1 FROM json_each(?) t
  WHERE instr(v.first_name, t.value) = 0
    AND instr(v.last_name, t.value) = 0
)
ORDER BY v.last_name, v.first_name, v.id;
`, s.logger, string(raw))
}

// historyParams binds the optional History filters. A NULL parameter
// disables its clause.
type historyParams struct {
	search  sql.NullString
	startMs sql.NullInt64
	endMs   sql.NullInt64
}

func newHistoryParams(f types.HistoryFilter) historyParams {
	var p historyParams
	if f.Search != "" {
		p.search = sql.NullString{String: f.Search, Valid: true}
	}
	if f.Start != nil {
		p.startMs = sql.NullInt64{Int64: f.Start.UTC().UnixMilli(), Valid: true}
	}
	if f.End != nil {
		p.endMs = sql.NullInt64{Int64: f.End.UTC().UnixMilli(), Valid: true}
	}
	return p
}

func (p historyParams) args() []any {
	return []any{p.search, p.search, p.startMs, p.startMs, p.endMs, p.endMs}
}

// History returns every visit matching f, newest entry first. f.End is
// compared inclusively; callers expand it to the end of its day.
func (s *RosterStore) History(ctx context.Context, f types.HistoryFilter) ([]types.VisitRecord, error) {
	return queryRecords(ctx, s.gw.Conn, "History", recordSelect+`
FROM visits vi
JOIN visitors v ON v.id = vi.visitor_id
WHERE (? IS NULL OR instr(fold_lower(v.first_name || ' ' || v.last_name), fold_lower(?)) > 0)
  AND (? IS NULL OR vi.entry_time_ms >= ?)
  AND (? IS NULL OR vi.entry_time_ms <= ?)
ORDER BY vi.entry_time_ms DESC, vi.id DESC;
`, s.logger, newHistoryParams(f).args()...)
}
