package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/GhostEsso/ahoefa-backend/internal/authz"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
)

// IAsynqClient abstracts the task queue client so handlers can be tested
// without Redis.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// respondServiceError maps the service sentinel errors onto HTTP statuses.
// Anything unrecognized is reported as an internal error without leaking the
// underlying message.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, authz.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient privileges"})
	case errors.Is(err, services.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "Monthly listing quota exceeded"})
	case errors.Is(err, services.ErrReceiverNotPremium):
		c.JSON(http.StatusForbidden, gin.H{"error": "Only premium agents can receive messages"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, services.ErrEmailExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
	case errors.Is(err, services.ErrUploadFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Image upload failed"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
