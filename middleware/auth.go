package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-autopost-platform/internal/auth"
	"social-autopost-platform/services"
	"social-autopost-platform/utils"
)

const principalKey = "principal"

type tokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens tokenValidator
}

func NewAuthMiddleware(tokens tokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth accepts a bearer token or an access_token cookie and stores
// the caller's principal on the context.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			return
		}

		claims, err := a.tokens.ValidateAccessToken(c.Request.Context(), tokenString)
		if err != nil {
			utils.RespondWithError(c, 401, "session_expired", "Your session has expired. Please log in again.", gin.H{"error": err.Error()})
			return
		}

		principal := services.Principal{UserID: claims.UserID, Role: claims.Role}
		if claims.ClientID != "" {
			clientID, err := primitive.ObjectIDFromHex(claims.ClientID)
			if err != nil {
				utils.RespondWithUnauthorized(c, "Token carries an invalid client id")
				return
			}
			principal.ClientID = clientID
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("client_id", claims.ClientID)
		c.Set("claims", claims)
		c.Set(principalKey, principal)

		c.Next()
	}
}

// SetPrincipal stores p on the context; used by tests and internal callers.
func SetPrincipal(c *gin.Context, p services.Principal) {
	c.Set("user_id", p.UserID)
	c.Set("role", p.Role)
	c.Set(principalKey, p)
}

// GetPrincipal returns the authenticated caller, if any.
func GetPrincipal(c *gin.Context) (services.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return services.Principal{}, false
	}
	p, ok := v.(services.Principal)
	return p, ok
}

func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

func GetRole(c *gin.Context) string {
	return c.GetString("role")
}
