package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-autopost-platform/internal/auth"
	"social-autopost-platform/internal/logger"
	"social-autopost-platform/utils"
)

// SetupSessionRoutes lets a caller invalidate its own access token.
func SetupSessionRoutes(api *gin.RouterGroup, tokens *auth.TokenManager) {
	api.DELETE("/session", func(c *gin.Context) {
		claims, ok := c.MustGet("claims").(*auth.Claims)
		if !ok {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		if err := tokens.Revoke(ctx, claims.ID); err != nil {
			logger.Error("Token revocation failed", "user_id", claims.UserID, "error", err)
			utils.RespondWithInternalError(c, "Failed to revoke session", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"revoked": tokens.RevocationEnabled()})
	})
}
