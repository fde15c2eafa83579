package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/wormz-app/backend/internal/errors"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

// respondError maps the service error taxonomy onto HTTP statuses. The
// error text is forwarded so the client can show the specific reason.
func respondError(c *gin.Context, err error) {
	var (
		ratingErr   *apperrors.RatingTooLowError
		cooldownErr *apperrors.CooldownError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrAuthRequired):
		status = http.StatusUnauthorized
	case errors.As(err, &ratingErr),
		errors.Is(err, apperrors.ErrBanned),
		errors.Is(err, apperrors.ErrNotOwner),
		errors.Is(err, apperrors.ErrNotParticipant):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrDailyLimit),
		errors.As(err, &cooldownErr):
		status = http.StatusTooManyRequests
	case errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrInactive),
		errors.Is(err, apperrors.ErrExpired),
		errors.Is(err, apperrors.ErrAlreadyParticipating),
		errors.Is(err, apperrors.ErrSelfInteraction),
		errors.Is(err, apperrors.ErrNoChannel),
		errors.Is(err, apperrors.ErrNotVerified):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.WithField("context", "api").WithError(err).Error("request failed")
		c.JSON(status, gin.H{"ok": false, "error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
