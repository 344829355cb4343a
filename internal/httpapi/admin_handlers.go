package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/db"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

func (s *Server) handleRetentionRun(c *gin.Context) {
	var req passwordRequest
	if err := readJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if err := s.adminGate.Check(req.Password); err != nil {
		s.writeServiceError(c, "retention_run", err)
		return
	}

	res := s.retention.RunOnce(c.Request.Context())
	if res.Err != "" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "retention_failed",
			"message": res.Err,
			"counts":  res.Counts,
		})
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (s *Server) handleAuditLogs(c *gin.Context) {
	if err := s.adminGate.Check(c.GetHeader(adminPasswordHeader)); err != nil {
		s.writeServiceError(c, "audit_logs", err)
		return
	}

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	entries, err := s.audit.ListAudit(c.Request.Context(), limit)
	if err != nil {
		s.writeServiceError(c, "audit_logs", err)
		return
	}
	if entries == nil {
		entries = []db.AuditEntry{}
	}
	writeJSON(c, http.StatusOK, entries)
}
