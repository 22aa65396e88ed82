package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-autopost-platform/services"
	"social-autopost-platform/utils"
)

type RoleMiddleware struct{}

func NewRoleMiddleware() *RoleMiddleware {
	return &RoleMiddleware{}
}

func (r *RoleMiddleware) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			utils.RespondWithUnauthorized(c, "User role not found")
			return
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.RespondWithError(c, http.StatusForbidden, "forbidden", "Insufficient permissions", gin.H{
			"required_roles": allowedRoles,
			"user_role":      role,
		})
	}
}

// AdminGuard admits operators only.
func (r *RoleMiddleware) AdminGuard() gin.HandlerFunc {
	return r.RequireRole(services.RoleAdmin)
}

func (r *RoleMiddleware) ClientGuard() gin.HandlerFunc {
	return r.RequireRole(services.RoleClient, services.RoleAdmin)
}
