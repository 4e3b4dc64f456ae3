package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhibayda/quiz-auth-service/internal/domain"
	"github.com/tazhibayda/quiz-auth-service/internal/log"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: msg})
}

// respondError maps domain errors to a status and a caller-facing message.
// Anything unrecognised is logged and reported as a plain server error.
func (h *Handler) respondError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, domain.ErrValidation):
		fail(c, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, domain.ErrAlreadyRegistered):
		fail(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, domain.ErrFederatedOnly):
		fail(c, http.StatusBadRequest, "Google login only")
	case errors.Is(err, domain.ErrInvalidOrExpired):
		fail(c, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, domain.ErrNotFound):
		fail(c, http.StatusNotFound, "User not found")
	case errors.Is(err, domain.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, domain.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, "Invalid token")
	default:
		log.WithDD(c.Request.Context(), h.Log).Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		fail(c, http.StatusInternalServerError, "Server error")
	}
}
