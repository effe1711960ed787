package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

// RequireRole is a middleware that checks if the player has the required role.
// It must run after BearerAuth.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextPlayerID); !exists {
			respondWithError(c, http.StatusUnauthorized, models.ErrUnauthorized, "Player not authenticated")
			return
		}

		role := c.GetString(ContextUserRole)
		if role != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, models.NewAPIError(
				models.ErrForbidden,
				"Insufficient permissions",
				map[string]interface{}{"required_role": requiredRole},
			))
			return
		}

		c.Next()
	}
}
