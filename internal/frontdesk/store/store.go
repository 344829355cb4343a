package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
)

var (
	ErrNotFound     = errors.New("visitor not found")
	ErrNoPriorVisit = errors.New("visitor has no prior visit")
	ErrNoOpenVisit  = errors.New("visitor is not signed in")
	ErrDuplicate    = errors.New("visitor already exists")
	ErrBanned       = errors.New("visitor is banned")
)

// NewVisitor is everything written by a first registration.
type NewVisitor struct {
	FirstName  string
	LastName   string
	PhotoPath  string // relative reference returned by the photo store
	Details    types.VisitDetails
	Dependents []types.Dependent
	At         time.Time
}

// VisitorStore owns the write side of the visit lifecycle. Every method
// that touches more than one row runs inside a single transaction.
type VisitorStore interface {
	FindByName(ctx context.Context, firstName, lastName string) (types.Visitor, bool, error)
	Register(ctx context.Context, nv NewVisitor) (types.RegisterResult, error)
	SignIn(ctx context.Context, visitorID int64, at time.Time) (types.SignInResult, error)
	CreateVisit(ctx context.Context, visitorID int64, d types.VisitDetails, deps []types.Dependent, at time.Time) (int64, error)
	SignOut(ctx context.Context, visitorID int64, at time.Time) (int64, error)
	RecordMissedVisit(ctx context.Context, visitorID int64, entry, exit time.Time) (int64, error)
	SetBanned(ctx context.Context, visitorID int64, banned bool) error
}

// RosterStore is the read side. Rows come back with dependents decoded and
// PhotoPath set; URLs are left to the caller.
type RosterStore interface {
	ActiveRoster(ctx context.Context) ([]types.VisitRecord, error)
	SearchByName(ctx context.Context, terms []string) ([]types.VisitRecord, error)
	History(ctx context.Context, f types.HistoryFilter) ([]types.VisitRecord, error)
}

// RetentionStore runs the three purge steps. Each call is its own
// statement; callers must run them in order.
type RetentionStore interface {
	DeleteExpiredDependents(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredVisits(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOrphanedVisitors(ctx context.Context) (int64, error)
}

// AuditLog appends and lists audit entries. LogAudit never fails its caller.
type AuditLog interface {
	LogAudit(ctx context.Context, e db.AuditEntry)
	ListAudit(ctx context.Context, limit int) ([]db.AuditEntry, error)
}

// DecodeDependents parses a stored dependents array. Malformed input is
// logged and treated as no dependents.
func DecodeDependents(raw string, logger *zap.Logger) []types.Dependent {
	out := []types.Dependent{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		if logger != nil {
			logger.Warn("malformed dependents payload", zap.Error(err), zap.Int("bytes", len(raw)))
		}
		return []types.Dependent{}
	}
	if out == nil {
		out = []types.Dependent{}
	}
	return out
}
