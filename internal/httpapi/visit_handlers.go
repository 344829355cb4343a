package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/photo"
)

// ── Register ─────────────────────────────────────────────────────────────────

func (s *Server) handleRegister(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes+formOverhead)

	if err := c.Request.ParseMultipartForm(s.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "too_large", photo.ErrTooLarge.Error())
			return
		}
		writeError(c, http.StatusBadRequest, "bad_form", "invalid form body")
		return
	}

	in, err := registerInputFromForm(c, s.maxUploadBytes)
	if err != nil {
		if errors.Is(err, photo.ErrTooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "too_large", err.Error())
			return
		}
		writeError(c, http.StatusBadRequest, "bad_form", "Invalid dependents or photo data.")
		return
	}

	res, err := s.visits.Register(c.Request.Context(), in)
	if err != nil {
		s.writeServiceError(c, "register", err)
		return
	}
	writeJSON(c, http.StatusCreated, res)
}

// ── Sign in / out ────────────────────────────────────────────────────────────

type signInRequest struct {
	ID flexID `json:"id"`
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req signInRequest
	if err := readJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	res, err := s.visits.SignIn(c.Request.Context(), int64(req.ID))
	if err != nil {
		s.writeServiceError(c, "sign_in", err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

type updateVisitorRequest struct {
	ID flexID `json:"id"`
	types.VisitDetails
	AdditionalDependents []wireDependent `json:"additional_dependents"`
}

func (s *Server) handleUpdateAndSignIn(c *gin.Context) {
	var req updateVisitorRequest
	if err := readJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	visitID, err := s.visits.UpdateAndSignIn(c.Request.Context(), int64(req.ID), req.VisitDetails, dependentsFromWire(req.AdditionalDependents))
	if err != nil {
		s.writeServiceError(c, "update_sign_in", err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"id": visitID})
}

func (s *Server) handleSignOut(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_id", "Invalid visitor ID.")
		return
	}

	if err := s.visits.SignOut(c.Request.Context(), id); err != nil {
		s.writeServiceError(c, "sign_out", err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Visitor signed out."})
}

// ── Corrections ──────────────────────────────────────────────────────────────

type missedVisitRequest struct {
	VisitorID     flexID `json:"visitorId"`
	PastEntryTime string `json:"pastEntryTime"`
}

func (s *Server) handleRecordMissedVisit(c *gin.Context) {
	var req missedVisitRequest
	if err := readJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	res, err := s.visits.RecordMissedVisit(c.Request.Context(), int64(req.VisitorID), req.PastEntryTime)
	if err != nil {
		s.writeServiceError(c, "missed_visit", err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// ── Ban / unban ──────────────────────────────────────────────────────────────

type banRequest struct {
	AdminPassword string `json:"admin_password"`
}

type unbanRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleBan(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_id", "Invalid visitor ID.")
		return
	}
	var req banRequest
	if err := readJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if err := s.adminGate.Check(req.AdminPassword); err != nil {
		s.logger.Warn("ban rejected: bad admin password", zap.Int64("visitor_id", id))
		s.writeServiceError(c, "ban", err)
		return
	}

	if err := s.visits.Ban(c.Request.Context(), id); err != nil {
		s.writeServiceError(c, "ban", err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Visitor banned."})
}

func (s *Server) handleUnban(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_id", "Invalid visitor ID.")
		return
	}
	var req unbanRequest
	if err := readJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if err := s.adminGate.Check(req.Password); err != nil {
		s.logger.Warn("unban rejected: bad admin password", zap.Int64("visitor_id", id))
		s.writeServiceError(c, "unban", err)
		return
	}

	if err := s.visits.Unban(c.Request.Context(), id); err != nil {
		s.writeServiceError(c, "unban", err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "Visitor unbanned."})
}
