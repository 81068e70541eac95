package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace_system/internal/catalog"
	"marketplace_system/internal/domain"
)

// respondError maps the error taxonomy onto HTTP responses. Timeouts
// carry a retry hint so the client can tell "try again" from a rejected
// operation; stale-state conflicts tell the client to refresh.
func respondError(c *gin.Context, err error) {
	var (
		invalid   *domain.InvalidTransitionError
		forbidden *domain.ForbiddenTransitionError
		stale     *domain.StaleStateError
		stock     *domain.InsufficientStockError
		gone      *domain.ProductUnavailableError
	)
	switch {
	case errors.Is(err, domain.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error(), "retry": true})
	case errors.As(err, &stale):
		c.JSON(http.StatusConflict, gin.H{"error": "Order was updated by someone else, please refresh", "refresh": true})
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &stock), errors.As(err, &gone):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProtectedAccount):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
