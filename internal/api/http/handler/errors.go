package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	locationService "location-tracking-core/internal/application/location"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/plan"
)

// respondError maps service errors to HTTP responses. Validation failures
// carry a machine-readable code, plan limit violations carry the ceiling so
// clients can adjust or upgrade.
func respondError(c *gin.Context, err error) {
	var validationErr *locationService.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"code":  validationErr.Code,
		})
		return
	}

	var limitErr *plan.LimitError
	if errors.As(err, &limitErr) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     limitErr.Error(),
			"code":      "PLAN_LIMIT_EXCEEDED",
			"feature":   limitErr.Feature,
			"limit":     limitErr.Limit,
			"requested": limitErr.Requested,
		})
		return
	}

	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
