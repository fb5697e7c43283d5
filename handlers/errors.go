package handlers

import (
	"errors"
	"net/http"

	"barberbook/models"
	"barberbook/services/appointments"
	"barberbook/services/approval"
	"barberbook/services/booking"
	"barberbook/services/identity"
	"barberbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAuthFailure):
		return http.StatusUnauthorized
	case errors.Is(err, appointments.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrEmailTaken),
		errors.Is(err, booking.ErrNotReady),
		errors.Is(err, approval.ErrStopped):
		return http.StatusConflict
	case errors.Is(err, models.ErrWriteFailure):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrResolutionFailure),
		errors.Is(err, appointments.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error. Unexpected errors are logged and
// their details withheld.
func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		utils.GetLogger().Error(message, zap.String("path", c.FullPath()), zap.Error(err))
		utils.JSONError(c, status, message, "An unexpected error occurred. Please try again later.")
		return
	}
	utils.JSONError(c, status, message, err.Error())
}
