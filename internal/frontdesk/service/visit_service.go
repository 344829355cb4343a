package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/metrics"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/photo"
)

const (
	EventVisitorBanned   = "VISITOR_BANNED"
	EventVisitorUnbanned = "VISITOR_UNBANNED"
)

// RegisterInput is a first-time registration. Photo is optional.
type RegisterInput struct {
	FirstName  string
	LastName   string
	Details    types.VisitDetails
	Dependents []types.Dependent
	Photo      *photo.Upload
}

// VisitService drives the visitor/visit lifecycle. Input is validated
// before any write begins; multi-row writes are delegated to the store,
// which runs each inside one transaction.
type VisitService struct {
	visitors store.VisitorStore
	audit    store.AuditLog
	photos   photo.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewVisitService(vs store.VisitorStore, audit store.AuditLog, photos photo.Store, m *metrics.Metrics, logger *zap.Logger) *VisitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisitService{visitors: vs, audit: audit, photos: photos, metrics: m, logger: logger}
}

func (s *VisitService) Register(ctx context.Context, in RegisterInput) (types.RegisterResult, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return types.RegisterResult{}, s.reject("register", newError(ErrValidation, "First name and last name are required."))
	}
	deps, err := cleanDependents(in.Dependents)
	if err != nil {
		return types.RegisterResult{}, s.reject("register", err)
	}

	// Fast path for the friendly message. The unique index is what
	// actually enforces this.
	_, exists, err := s.visitors.FindByName(ctx, first, last)
	if err != nil {
		return types.RegisterResult{}, s.fail("register", err)
	}
	if exists {
		return types.RegisterResult{}, s.reject("register", duplicateError(first, last))
	}

	var photoRef string
	if in.Photo != nil && len(in.Photo.Data) > 0 {
		if s.photos == nil {
			return types.RegisterResult{}, s.fail("register", errors.New("photo storage is not configured"))
		}
		photoRef, err = s.photos.Save(ctx, *in.Photo)
		if err != nil {
			if errors.Is(err, photo.ErrInvalidImage) || errors.Is(err, photo.ErrTooLarge) {
				return types.RegisterResult{}, s.reject("register", newError(ErrValidation, "%s", err.Error()))
			}
			return types.RegisterResult{}, s.fail("register", fmt.Errorf("stage photo: %w", err))
		}
	}

	res, err := s.visitors.Register(ctx, store.NewVisitor{
		FirstName:  first,
		LastName:   last,
		PhotoPath:  photoRef,
		Details:    in.Details,
		Dependents: deps,
		At:         time.Now().UTC(),
	})
	if err != nil {
		s.discardPhoto(photoRef)
		if errors.Is(err, store.ErrDuplicate) {
			return types.RegisterResult{}, s.reject("register", duplicateError(first, last))
		}
		return types.RegisterResult{}, s.fail("register", err)
	}

	s.metrics.ObserveTransition("register", "ok")
	s.logger.Info("visitor registered",
		zap.Int64("visitor_id", res.VisitorID),
		zap.Int64("visit_id", res.VisitID),
		zap.Int("dependents", len(deps)),
		zap.Bool("photo", photoRef != ""),
	)
	return res, nil
}

// SignIn opens a new visit for a returning visitor from their last visit.
func (s *VisitService) SignIn(ctx context.Context, visitorID int64) (types.SignInResult, error) {
	if visitorID <= 0 {
		return types.SignInResult{}, s.reject("sign_in", newError(ErrValidation, "Visitor ID is required."))
	}

	res, err := s.visitors.SignIn(ctx, visitorID, time.Now().UTC())
	if err != nil {
		return types.SignInResult{}, s.storeError("sign_in", err)
	}
	if s.photos != nil {
		res.Visitor.PhotoURL = s.photos.URL(res.Visitor.PhotoPath)
	}

	s.metrics.ObserveTransition("sign_in", "ok")
	s.logger.Info("visitor signed in",
		zap.Int64("visitor_id", visitorID),
		zap.Int64("visit_id", res.Visit.ID),
	)
	return res, nil
}

// UpdateAndSignIn opens a new visit using the details the visitor supplied
// at the desk instead of copying the previous ones.
func (s *VisitService) UpdateAndSignIn(ctx context.Context, visitorID int64, d types.VisitDetails, deps []types.Dependent) (int64, error) {
	if visitorID <= 0 {
		return 0, s.reject("update_sign_in", newError(ErrValidation, "Visitor ID is required."))
	}
	deps, err := cleanDependents(deps)
	if err != nil {
		return 0, s.reject("update_sign_in", err)
	}

	visitID, err := s.visitors.CreateVisit(ctx, visitorID, d, deps, time.Now().UTC())
	if err != nil {
		return 0, s.storeError("update_sign_in", err)
	}

	s.metrics.ObserveTransition("update_sign_in", "ok")
	s.logger.Info("visitor details updated and signed in",
		zap.Int64("visitor_id", visitorID),
		zap.Int64("visit_id", visitID),
	)
	return visitID, nil
}

func (s *VisitService) SignOut(ctx context.Context, visitorID int64) error {
	if visitorID <= 0 {
		return s.reject("sign_out", newError(ErrValidation, "Visitor ID is required."))
	}

	visitID, err := s.visitors.SignOut(ctx, visitorID, time.Now().UTC())
	if err != nil {
		return s.storeError("sign_out", err)
	}

	s.metrics.ObserveTransition("sign_out", "ok")
	s.logger.Info("visitor signed out",
		zap.Int64("visitor_id", visitorID),
		zap.Int64("visit_id", visitID),
	)
	return nil
}

// RecordMissedVisit back-fills a visit that was never logged. The entry
// time must be strictly before now, which becomes the exit time.
func (s *VisitService) RecordMissedVisit(ctx context.Context, visitorID int64, pastEntryTime string) (types.MissedVisitResult, error) {
	if visitorID <= 0 {
		return types.MissedVisitResult{}, s.reject("missed_visit", newError(ErrValidation, "Visitor ID is required."))
	}

	exit := time.Now().UTC()
	entry, ok := parseEntryTime(pastEntryTime)
	if !ok || !entry.Before(exit) {
		return types.MissedVisitResult{}, s.reject("missed_visit", newError(ErrInvalidTimeRange, msgInvalidEntry))
	}

	visitID, err := s.visitors.RecordMissedVisit(ctx, visitorID, entry, exit)
	if err != nil {
		return types.MissedVisitResult{}, s.storeError("missed_visit", err)
	}

	s.metrics.ObserveTransition("missed_visit", "ok")
	s.logger.Info("missed visit recorded",
		zap.Int64("visitor_id", visitorID),
		zap.Int64("visit_id", visitID),
		zap.Time("entry", entry),
	)
	return types.MissedVisitResult{VisitID: visitID, Entry: entry, Exit: exit}, nil
}

// Ban and Unban flip the banned flag. The shared-secret check is the
// caller's job.
func (s *VisitService) Ban(ctx context.Context, visitorID int64) error {
	return s.setBanned(ctx, visitorID, true)
}

func (s *VisitService) Unban(ctx context.Context, visitorID int64) error {
	return s.setBanned(ctx, visitorID, false)
}

func (s *VisitService) setBanned(ctx context.Context, visitorID int64, banned bool) error {
	op, event := "unban", EventVisitorUnbanned
	if banned {
		op, event = "ban", EventVisitorBanned
	}

	if visitorID <= 0 {
		return s.reject(op, newError(ErrValidation, "Invalid visitor ID."))
	}
	if err := s.visitors.SetBanned(ctx, visitorID, banned); err != nil {
		return s.storeError(op, err)
	}

	if s.audit != nil {
		s.audit.LogAudit(ctx, db.AuditEntry{
			EventName: event,
			Status:    db.AuditStatusOK,
			Message:   fmt.Sprintf("visitor %d", visitorID),
		})
	}

	s.metrics.ObserveTransition(op, "ok")
	s.logger.Info("visitor ban flag changed",
		zap.Int64("visitor_id", visitorID),
		zap.Bool("banned", banned),
	)
	return nil
}

// storeError turns store sentinels into user-facing errors.
func (s *VisitService) storeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s.reject(op, newError(ErrNotFound, msgVisitorNotFound))
	case errors.Is(err, store.ErrBanned):
		return s.reject(op, newError(ErrBanned, msgBanned))
	case errors.Is(err, store.ErrNoPriorVisit):
		return s.reject(op, newError(ErrNoPriorVisit, "No previous visit found for this visitor. Please register them."))
	case errors.Is(err, store.ErrNoOpenVisit):
		return s.reject(op, newError(ErrNotSignedIn, "This visitor is not currently signed in."))
	}
	return s.fail(op, err)
}

func (s *VisitService) reject(op string, err error) error {
	s.metrics.ObserveTransition(op, "rejected")
	s.logger.Debug("visit operation rejected", zap.String("op", op), zap.Error(err))
	return err
}

func (s *VisitService) fail(op string, err error) error {
	s.metrics.ObserveTransition(op, "error")
	s.logger.Error("visit operation failed", zap.String("op", op), zap.Error(err))
	return err
}

// discardPhoto removes a photo staged for a registration that did not
// commit. It runs on its own context so a cancelled request still cleans up.
func (s *VisitService) discardPhoto(ref string) {
	if ref == "" || s.photos == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.photos.Delete(ctx, ref); err != nil {
		s.logger.Error("staged photo cleanup failed", zap.String("ref", ref), zap.Error(err))
	}
}

func cleanDependents(in []types.Dependent) ([]types.Dependent, error) {
	out := make([]types.Dependent, 0, len(in))
	for _, d := range in {
		name := strings.TrimSpace(d.FullName)
		if name == "" {
			return nil, newError(ErrValidation, "Each dependent needs a full name.")
		}
		if d.Age != nil && (*d.Age < 0 || *d.Age > 150) {
			return nil, newError(ErrValidation, "Dependent age for %s is out of range.", name)
		}
		out = append(out, types.Dependent{FullName: name, Age: d.Age})
	}
	return out, nil
}

var entryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseEntryTime accepts RFC 3339 and the zone-less forms browsers send
// from datetime-local inputs, which are read in the server's local zone.
func parseEntryTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range entryLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
