package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: msg})
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, common.ErrInvalidSchedule),
		errors.Is(err, common.ErrUnknownPlatform),
		errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrStateMismatch),
		errors.Is(err, common.ErrOAuthDenied),
		errors.Is(err, common.ErrNoAuthorizationCode),
		errors.Is(err, common.ErrAuthorizationCancelled):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, common.ErrNoPublishTarget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrOAuthTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, common.ErrEncryptionUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) handleError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	fail(c, status, err.Error())
}
