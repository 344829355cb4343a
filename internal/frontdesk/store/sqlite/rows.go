package sqlite

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	dbpkg "github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
)

const detailColumns = `known_as, address, phone_number, unit,
  reason_for_visit, visitor_type, company_name, mandatory_acknowledgment_taken`

// recordSelect joins a visitor (v) with one visit (vi) and aggregates that
// visit's dependents into a JSON array. vi may be NULL under a LEFT JOIN.
const recordSelect = `
SELECT v.id, v.first_name, v.last_name, v.photo_path, v.is_banned,
       vi.id, vi.entry_time_ms, vi.exit_time_ms,
       vi.known_as, vi.address, vi.phone_number, vi.unit,
       vi.reason_for_visit, vi.visitor_type, vi.company_name,
       vi.mandatory_acknowledgment_taken,
       (SELECT json_group_array(json_object('full_name', d.full_name, 'age', d.age) ORDER BY d.id)
          FROM dependents d WHERE d.visit_id = vi.id) AS dependents`

func detailArgs(d types.VisitDetails) []any {
	var ack int
	if d.MandatoryAcknowledgmentTaken {
		ack = 1
	}
	return []any{
		d.KnownAs, d.Address, d.PhoneNumber, d.Unit,
		d.ReasonForVisit, d.VisitorType, d.CompanyName, ack,
	}
}

// detailScan receives the eight detail columns, all of which may be NULL.
type detailScan struct {
	knownAs, address, phone, unit, reason, visitorType, company sql.NullString
	ack                                                         sql.NullInt64
}

func (s *detailScan) dest() []any {
	return []any{
		&s.knownAs, &s.address, &s.phone, &s.unit,
		&s.reason, &s.visitorType, &s.company, &s.ack,
	}
}

func (s *detailScan) value() types.VisitDetails {
	return types.VisitDetails{
		KnownAs:                      s.knownAs.String,
		Address:                      s.address.String,
		PhoneNumber:                  s.phone.String,
		Unit:                         s.unit.String,
		ReasonForVisit:               s.reason.String,
		VisitorType:                  s.visitorType.String,
		CompanyName:                  s.company.String,
		MandatoryAcknowledgmentTaken: s.ack.Int64 != 0,
	}
}

// scanRecord reads one recordSelect row.
func scanRecord(rows *sql.Rows, logger *zap.Logger) (types.VisitRecord, error) {
	var (
		rec     types.VisitRecord
		photo   sql.NullString
		banned  int
		visitID sql.NullInt64
		entry   sql.NullInt64
		exit    sql.NullInt64
		details detailScan
		deps    sql.NullString
	)

	dest := []any{&rec.VisitorID, &rec.FirstName, &rec.LastName, &photo, &banned, &visitID, &entry, &exit}
	dest = append(dest, details.dest()...)
	dest = append(dest, &deps)

	if err := rows.Scan(dest...); err != nil {
		return types.VisitRecord{}, err
	}

	rec.PhotoPath = photo.String
	rec.IsBanned = banned != 0
	rec.VisitID = visitID.Int64
	rec.EntryTime = msPtr(entry)
	rec.ExitTime = msPtr(exit)
	rec.VisitDetails = details.value()
	rec.Dependents = store.DecodeDependents(deps.String, logger)
	return rec, nil
}

func queryRecords(ctx context.Context, q dbpkg.Conn, op, query string, logger *zap.Logger, args ...any) ([]types.VisitRecord, error) {
	out := []types.VisitRecord{}
	err := q.Query(ctx, op, query, func(rows *sql.Rows) error {
		rec, err := scanRecord(rows, logger)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func msPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
