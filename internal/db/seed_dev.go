package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a demo visitor with an open visit so a fresh dev database
// has something on the roster. It is a no-op once the visitor exists.
func SeedDev(ctx context.Context, conn *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	res, err := conn.ExecContext(ctx, `
INSERT OR IGNORE INTO visitors(first_name, last_name, is_banned, created_at_ms)
VALUES ('Demo', 'Visitor', 0, ?);`, now)
	if err != nil {
		return fmt.Errorf("seed visitor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	if _, err := conn.ExecContext(ctx, `
INSERT INTO visits(
  visitor_id, entry_time_ms, known_as, address, phone_number, unit,
  reason_for_visit, visitor_type, company_name, mandatory_acknowledgment_taken
)
SELECT id, ?, 'Demo', '1 Main Street', '555-0100', 'Reception',
       'Dev seed', 'Visitor', '', 1
FROM visitors WHERE first_name = 'Demo' AND last_name = 'Visitor';`, now); err != nil {
		return fmt.Errorf("seed visit: %w", err)
	}

	return nil
}
