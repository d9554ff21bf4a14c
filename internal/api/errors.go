package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"wolf-tap/internal/pkg/lock"
	"wolf-tap/internal/service"
)

// statusOf maps service outcomes to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrBadgeNotFound),
		errors.Is(err, service.ErrSocialLinkNotFound),
		errors.Is(err, service.ErrWithdrawalNotFound),
		errors.Is(err, service.ErrUnknownGame):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDailyLimitExceeded),
		errors.Is(err, service.ErrGameCooldown):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrAlreadyReferred),
		errors.Is(err, service.ErrWithdrawalNotPending):
		return http.StatusConflict
	case errors.Is(err, lock.ErrLockTimeout):
		return http.StatusServiceUnavailable
	case service.IsRejection(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON error body. Faults are logged and
// hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", requestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
		message = "internal server error"
		if status == http.StatusServiceUnavailable {
			message = "server busy, try again"
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
