package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-autopost-platform/internal/ai"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/middleware"
	"social-autopost-platform/models"
	"social-autopost-platform/services"
	"social-autopost-platform/utils"
)

// respondError maps service errors onto the error envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.RespondWithNotFound(c, "Resource not found")
	case errors.Is(err, services.ErrForbidden):
		utils.RespondWithForbidden(c, "Access denied")
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondWithConflict(c, "invalid_transition", err.Error())
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrImageRequired),
		errors.Is(err, services.ErrInvalidMedia):
		utils.RespondWithBadRequest(c, err.Error(), nil)
	case errors.Is(err, ai.ErrQuotaExceeded):
		utils.RespondWithError(c, http.StatusTooManyRequests, "quota_exceeded", err.Error(), nil)
	case errors.Is(err, ai.ErrModelUnavailable):
		utils.RespondWithError(c, http.StatusServiceUnavailable, "ai_unavailable", "Caption generation is temporarily unavailable", nil)
	case errors.Is(err, services.ErrEmptyCaption), errors.Is(err, ai.ErrEmptyResponse):
		utils.RespondWithError(c, http.StatusBadGateway, "ai_empty_response", "Caption generation returned no text", nil)
	default:
		logger.Error("Request failed", "path", c.FullPath(), "request_id", middleware.GetRequestID(c), "error", err)
		utils.RespondWithInternalError(c, "Internal server error", nil)
	}
}

// principal returns the authenticated caller or answers 401.
func principal(c *gin.Context) (services.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.RespondWithUnauthorized(c, "Authentication required")
	}
	return p, ok
}
