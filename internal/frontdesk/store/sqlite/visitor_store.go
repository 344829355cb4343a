package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
)

type VisitorStore struct {
	gw *dbpkg.Gateway
}

func NewVisitorStore(gw *dbpkg.Gateway) *VisitorStore {
	return &VisitorStore{gw: gw}
}

func (s *VisitorStore) FindByName(ctx context.Context, firstName, lastName string) (types.Visitor, bool, error) {
	return getVisitor(ctx, s.gw.Conn, "FindByName", `
SELECT id, first_name, last_name, photo_path, is_banned, created_at_ms
FROM visitors
WHERE first_name = ? AND last_name = ?;
`, firstName, lastName)
}

// Register inserts the visitor, their first visit and its dependents in one
// transaction. A unique-name violation comes back as store.ErrDuplicate.
func (s *VisitorStore) Register(ctx context.Context, nv store.NewVisitor) (types.RegisterResult, error) {
	if nv.At.IsZero() {
		nv.At = time.Now().UTC()
	}
	atMs := nv.At.UTC().UnixMilli()

	var res types.RegisterResult
	err := s.gw.Tx(ctx, func(ctx context.Context, tx dbpkg.Conn) error {
		visitorID, err := tx.Insert(ctx, "Register insert visitor", `
INSERT INTO visitors(first_name, last_name, photo_path, is_banned, created_at_ms)
VALUES (?, ?, ?, 0, ?);
`, nv.FirstName, nv.LastName, nullIfEmpty(nv.PhotoPath), atMs)
		if err != nil {
			if dbpkg.IsUniqueViolation(err) {
				return store.ErrDuplicate
			}
			return err
		}

		visitID, err := insertVisit(ctx, tx, "Register", visitorID, atMs, nil, nv.Details)
		if err != nil {
			return err
		}
		if err := insertDependents(ctx, tx, "Register", visitID, nv.Dependents); err != nil {
			return err
		}

		res = types.RegisterResult{VisitorID: visitorID, VisitID: visitID}
		return nil
	})
	return res, err
}

// SignIn opens a new visit for a returning visitor, copying the details and
// dependents of their most recent visit. Any visit still open is closed at
// the same instant first.
func (s *VisitorStore) SignIn(ctx context.Context, visitorID int64, at time.Time) (types.SignInResult, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	at = at.UTC()
	atMs := at.UnixMilli()

	var res types.SignInResult
	err := s.gw.Tx(ctx, func(ctx context.Context, tx dbpkg.Conn) error {
		visitor, found, err := getVisitor(ctx, tx, "SignIn load visitor", `
SELECT id, first_name, last_name, photo_path, is_banned, created_at_ms
FROM visitors WHERE id = ?;
`, visitorID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}
		if visitor.IsBanned {
			return store.ErrBanned
		}

		var (
			priorID int64
			details detailScan
		)
		found, err = tx.Get(ctx, "SignIn load latest visit", `
SELECT id, `+detailColumns+`
FROM visits
WHERE visitor_id = ?
ORDER BY entry_time_ms DESC, id DESC
LIMIT 1;
`, append([]any{&priorID}, details.dest()...), visitorID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNoPriorVisit
		}

		deps, err := loadDependents(ctx, tx, "SignIn load dependents", priorID)
		if err != nil {
			return err
		}

		if err := closeOpenVisits(ctx, tx, "SignIn", visitorID, atMs); err != nil {
			return err
		}

		d := details.value()
		visitID, err := insertVisit(ctx, tx, "SignIn", visitorID, atMs, nil, d)
		if err != nil {
			return err
		}
		if err := insertDependents(ctx, tx, "SignIn", visitID, deps); err != nil {
			return err
		}

		res = types.SignInResult{
			Visitor: visitor,
			Visit: types.Visit{
				ID:           visitID,
				VisitorID:    visitorID,
				EntryTime:    at,
				VisitDetails: d,
			},
			Dependents: deps,
		}
		return nil
	})
	return res, err
}

// CreateVisit opens a new visit with caller-supplied details. The visitor
// must exist and not be banned; any open visit is closed first.
func (s *VisitorStore) CreateVisit(ctx context.Context, visitorID int64, d types.VisitDetails, deps []types.Dependent, at time.Time) (int64, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	atMs := at.UTC().UnixMilli()

	var visitID int64
	err := s.gw.Tx(ctx, func(ctx context.Context, tx dbpkg.Conn) error {
		var banned int
		found, err := tx.Get(ctx, "CreateVisit load visitor",
			`SELECT is_banned FROM visitors WHERE id = ?;`, []any{&banned}, visitorID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}
		if banned != 0 {
			return store.ErrBanned
		}

		if err := closeOpenVisits(ctx, tx, "CreateVisit", visitorID, atMs); err != nil {
			return err
		}

		visitID, err = insertVisit(ctx, tx, "CreateVisit", visitorID, atMs, nil, d)
		if err != nil {
			return err
		}
		return insertDependents(ctx, tx, "CreateVisit", visitID, deps)
	})
	return visitID, err
}

// SignOut closes the visitor's most recent open visit and returns its id.
func (s *VisitorStore) SignOut(ctx context.Context, visitorID int64, at time.Time) (int64, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	atMs := at.UTC().UnixMilli()

	var visitID int64
	err := s.gw.Tx(ctx, func(ctx context.Context, tx dbpkg.Conn) error {
		found, err := tx.Get(ctx, "SignOut find open visit", `
SELECT id FROM visits
WHERE visitor_id = ? AND exit_time_ms IS NULL
ORDER BY entry_time_ms DESC, id DESC
LIMIT 1;
`, []any{&visitID}, visitorID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNoOpenVisit
		}

		_, err = tx.Exec(ctx, "SignOut close visit",
			`UPDATE visits SET exit_time_ms = ? WHERE id = ?;`, atMs, visitID)
		return err
	})
	return visitID, err
}

// RecordMissedVisit inserts an already closed visit. Details come from the
// visitor's latest visit, or placeholders when there is none.
func (s *VisitorStore) RecordMissedVisit(ctx context.Context, visitorID int64, entry, exit time.Time) (int64, error) {
	entryMs := entry.UTC().UnixMilli()
	exitMs := exit.UTC().UnixMilli()

	var visitID int64
	err := s.gw.Tx(ctx, func(ctx context.Context, tx dbpkg.Conn) error {
		var one int
		found, err := tx.Get(ctx, "RecordMissedVisit load visitor",
			`SELECT 1 FROM visitors WHERE id = ?;`, []any{&one}, visitorID)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}

		var details detailScan
		found, err = tx.Get(ctx, "RecordMissedVisit load latest visit", `
SELECT `+detailColumns+`
FROM visits
WHERE visitor_id = ?
ORDER BY entry_time_ms DESC, id DESC
LIMIT 1;
`, details.dest(), visitorID)
		if err != nil {
			return err
		}

		d := types.PlaceholderDetails()
		if found {
			d = details.value()
		}

		visitID, err = insertVisit(ctx, tx, "RecordMissedVisit", visitorID, entryMs, exitMs, d)
		return err
	})
	return visitID, err
}

func (s *VisitorStore) SetBanned(ctx context.Context, visitorID int64, banned bool) error {
	var flag int
	if banned {
		flag = 1
	}
	n, err := s.gw.Exec(ctx, "SetBanned",
		`UPDATE visitors SET is_banned = ? WHERE id = ?;`, flag, visitorID)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func getVisitor(ctx context.Context, q dbpkg.Conn, op, query string, args ...any) (types.Visitor, bool, error) {
	var (
		v         types.Visitor
		photo     sql.NullString
		banned    int
		createdMs int64
	)
	found, err := q.Get(ctx, op, query,
		[]any{&v.ID, &v.FirstName, &v.LastName, &photo, &banned, &createdMs}, args...)
	if err != nil || !found {
		return types.Visitor{}, found, err
	}
	v.PhotoPath = photo.String
	v.IsBanned = banned != 0
	v.CreatedAt = time.UnixMilli(createdMs).UTC()
	return v, true, nil
}

// exitMs is nil for an open visit.
func insertVisit(ctx context.Context, tx dbpkg.Conn, op string, visitorID, entryMs int64, exitMs any, d types.VisitDetails) (int64, error) {
	args := append([]any{visitorID, entryMs, exitMs}, detailArgs(d)...)
	return tx.Insert(ctx, op+" insert visit", `
INSERT INTO visits(visitor_id, entry_time_ms, exit_time_ms, `+detailColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, args...)
}

func insertDependents(ctx context.Context, tx dbpkg.Conn, op string, visitID int64, deps []types.Dependent) error {
	for i, dep := range deps {
		var age any
		if dep.Age != nil {
			age = *dep.Age
		}
		if _, err := tx.Insert(ctx, fmt.Sprintf("%s insert dependent %d", op, i), `
INSERT INTO dependents(full_name, age, visit_id) VALUES (?, ?, ?);
`, dep.FullName, age, visitID); err != nil {
			return err
		}
	}
	return nil
}

func loadDependents(ctx context.Context, tx dbpkg.Conn, op string, visitID int64) ([]types.Dependent, error) {
	deps := []types.Dependent{}
	err := tx.Query(ctx, op, `
SELECT full_name, age FROM dependents WHERE visit_id = ? ORDER BY id;
`, func(rows *sql.Rows) error {
		var (
			dep types.Dependent
			age sql.NullInt64
		)
		if err := rows.Scan(&dep.FullName, &age); err != nil {
			return err
		}
		if age.Valid {
			a := int(age.Int64)
			dep.Age = &a
		}
		deps = append(deps, dep)
		return nil
	}, visitID)
	return deps, err
}

func closeOpenVisits(ctx context.Context, tx dbpkg.Conn, op string, visitorID, atMs int64) error {
	_, err := tx.Exec(ctx, op+" close open visit", `
UPDATE visits SET exit_time_ms = ?
WHERE visitor_id = ? AND exit_time_ms IS NULL;
`, atMs, visitorID)
	return err
}
