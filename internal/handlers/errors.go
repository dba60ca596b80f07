package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusdelivery/internal/middleware"
	"campusdelivery/internal/models"
	"campusdelivery/internal/service"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{service.ErrDuplicateIdentity, http.StatusConflict, "STUDENT_ID_TAKEN", "That student ID is already registered"},
	{service.ErrForbidden, http.StatusForbidden, "INVALID_STAFF_KEY", "Invalid staff registration key"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid student ID or password"},
	{service.ErrInvalidState, http.StatusConflict, "INVALID_2FA_STATE", "Two-factor authentication is not in the right state for this request"},
	{service.ErrInvalidTotpCode, http.StatusUnauthorized, "INVALID_2FA_CODE", "Invalid or expired 2FA code"},
	{service.ErrInvalidToken, http.StatusBadRequest, "INVALID_RESET_TOKEN", "Invalid reset token"},
	{service.ErrExpiredToken, http.StatusBadRequest, "EXPIRED_RESET_TOKEN", "Reset token has expired, request a new one"},
	{service.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found"},
	{service.ErrOrderForbidden, http.StatusForbidden, "FORBIDDEN", "Staff role required"},
	{service.ErrEmptyOrder, http.StatusConflict, "EMPTY_ORDER", "Order has no items"},
	{service.ErrInvalidOrderState, http.StatusConflict, "INVALID_ORDER_STATE", "Order cannot make that change in its current status"},
}

// writeError maps service errors onto stable codes. Unknown errors are
// logged and answered with a generic 500.
func (h HandlerSet) writeError(c *gin.Context, err error) {
	var validation *models.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_ERROR", "message": validation.Error()})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, gin.H{"error": m.code, "message": m.message})
			return
		}
	}

	h.log.Error().
		Err(err).
		Str("path", c.Request.URL.Path).
		Str("request_id", c.Writer.Header().Get("X-Request-Id")).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR", "message": "Something went wrong"})
}

func (h HandlerSet) writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION_ERROR", "message": err.Error()})
}

// writeUnauthorized covers handlers reached without the auth middleware
// having stored an account.
func writeUnauthorized(c *gin.Context) {
	middleware.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
}
