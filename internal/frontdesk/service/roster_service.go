package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/photo"
)

const dateLayout = "2006-01-02"

// HistoryQuery is the raw history filter as received from a client.
// Dates are YYYY-MM-DD in UTC; empty strings disable a filter.
type HistoryQuery struct {
	Search    string
	StartDate string
	EndDate   string
}

// RosterService answers the read-side questions: who is on site, who
// matches a name, and what happened over a date range.
type RosterService struct {
	roster store.RosterStore
	photos photo.Store
	logger *zap.Logger
}

func NewRosterService(rs store.RosterStore, photos photo.Store, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{roster: rs, photos: photos, logger: logger}
}

func (s *RosterService) ActiveRoster(ctx context.Context) ([]types.VisitRecord, error) {
	recs, err := s.roster.ActiveRoster(ctx)
	if err != nil {
		s.logger.Error("active roster query failed", zap.Error(err))
		return nil, err
	}
	return s.withPhotoURLs(recs), nil
}

// SearchByName splits query on whitespace and returns visitors whose first
// or last name contains every term.
func (s *RosterService) SearchByName(ctx context.Context, query string) ([]types.VisitRecord, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, newError(ErrValidation, "Search term cannot be empty.")
	}

	recs, err := s.roster.SearchByName(ctx, terms)
	if err != nil {
		s.logger.Error("visitor search failed", zap.Int("terms", len(terms)), zap.Error(err))
		return nil, err
	}
	return s.withPhotoURLs(recs), nil
}

func (s *RosterService) History(ctx context.Context, q HistoryQuery) ([]types.VisitRecord, error) {
	f, err := parseHistoryQuery(q)
	if err != nil {
		return nil, err
	}

	recs, err := s.roster.History(ctx, f)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		return nil, err
	}
	return s.withPhotoURLs(recs), nil
}

func (s *RosterService) withPhotoURLs(recs []types.VisitRecord) []types.VisitRecord {
	if s.photos == nil {
		return recs
	}
	for i := range recs {
		recs[i].PhotoURL = s.photos.URL(recs[i].PhotoPath)
	}
	return recs
}

// parseHistoryQuery expands EndDate to the last millisecond of its day.
func parseHistoryQuery(q HistoryQuery) (types.HistoryFilter, error) {
	f := types.HistoryFilter{Search: strings.TrimSpace(q.Search)}

	if v := strings.TrimSpace(q.StartDate); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return types.HistoryFilter{}, newError(ErrValidation, "Invalid start_date %q; expected YYYY-MM-DD.", v)
		}
		f.Start = &t
	}

	if v := strings.TrimSpace(q.EndDate); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return types.HistoryFilter{}, newError(ErrValidation, "Invalid end_date %q; expected YYYY-MM-DD.", v)
		}
		end := t.Add(24*time.Hour - time.Millisecond)
		f.End = &end
	}

	return f, nil
}
