package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/export"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/service"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleActiveRoster(c *gin.Context) {
	recs, err := s.roster.ActiveRoster(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, "active_roster", err)
		return
	}
	writeJSON(c, http.StatusOK, nonNil(recs))
}

func (s *Server) handleSearch(c *gin.Context) {
	recs, err := s.roster.SearchByName(c.Request.Context(), c.Query("name"))
	if err != nil {
		s.writeServiceError(c, "visitor_search", err)
		return
	}
	writeJSON(c, http.StatusOK, nonNil(recs))
}

func historyQuery(c *gin.Context) service.HistoryQuery {
	return service.HistoryQuery{
		Search:    c.Query("search"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	recs, err := s.roster.History(c.Request.Context(), historyQuery(c))
	if err != nil {
		s.writeServiceError(c, "history", err)
		return
	}
	writeJSON(c, http.StatusOK, nonNil(recs))
}

// handleHistoryExport renders the same rows as /history as a download.
// The file is built in memory so a render failure can still become a 500.
func (s *Server) handleHistoryExport(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" {
		writeError(c, http.StatusBadRequest, "invalid_format", "format must be csv or xlsx")
		return
	}

	recs, err := s.roster.History(c.Request.Context(), historyQuery(c))
	if err != nil {
		s.writeServiceError(c, "history_export", err)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = xlsxContentType
		err = export.WriteXLSX(&buf, recs)
	} else {
		err = export.WriteCSV(&buf, recs)
	}
	if err != nil {
		s.logger.Error("history export failed", zap.String("format", format), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	name := fmt.Sprintf("visit-history-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleAuthorizeHistory(c *gin.Context) {
	var req passwordRequest
	if err := readJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if err := s.historyGate.Check(req.Password); err != nil {
		s.writeServiceError(c, "authorize_history", err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"authorized": true})
}

func nonNil(recs []types.VisitRecord) []types.VisitRecord {
	if recs == nil {
		return []types.VisitRecord{}
	}
	return recs
}
