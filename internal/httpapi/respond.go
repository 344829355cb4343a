package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: msg})
}

// writeServiceError maps a service error onto a status code. Anything not
// recognized is a 500 with a generic message; the detail goes to the log.
func (s *Server) writeServiceError(c *gin.Context, op string, err error) {
	msg := service.Message(err)
	if msg == "" {
		msg = err.Error()
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(c, http.StatusBadRequest, "invalid_request", msg)
	case errors.Is(err, service.ErrInvalidTimeRange):
		writeError(c, http.StatusBadRequest, "invalid_time_range", msg)
	case errors.Is(err, service.ErrDuplicateVisitor):
		writeError(c, http.StatusConflict, "duplicate_visitor", msg)
	case errors.Is(err, service.ErrBanned):
		writeError(c, http.StatusForbidden, "banned", msg)
	case errors.Is(err, service.ErrForbidden):
		writeError(c, http.StatusForbidden, "forbidden", msg)
	case errors.Is(err, service.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", msg)
	default:
		s.logger.Error(op+" error", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
