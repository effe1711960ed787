package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/franciscosanchezn/tg-game-api/internal/auth"
	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

// Context keys set by BearerAuth.
const (
	ContextPlayerID   = "playerID"
	ContextTelegramID = "telegramID"
	ContextUserRole   = "userRole"
)

// AccessTokenParser validates access tokens. *auth.TokenIssuer implements it.
type AccessTokenParser interface {
	ParseAccess(token string) (*auth.Claims, error)
}

// BearerAuth requires a valid session access token in the Authorization header and
// stores the player id, Telegram id and role in the Gin context.
func BearerAuth(parser AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondWithError(c, http.StatusUnauthorized, models.ErrUnauthorized,
				"Missing Authorization header. A valid Bearer token is required.")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondWithError(c, http.StatusUnauthorized, models.ErrUnauthorized,
				"Authorization header must use Bearer scheme. Format: 'Bearer <token>'")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			respondWithError(c, http.StatusUnauthorized, models.ErrInvalidToken, "Bearer token is empty")
			return
		}

		claims, err := parser.ParseAccess(tokenString)
		if err != nil {
			respondWithError(c, http.StatusUnauthorized, models.ErrInvalidToken, "Token is invalid or expired")
			return
		}

		c.Set(ContextPlayerID, claims.PlayerID)
		c.Set(ContextTelegramID, claims.TelegramID)
		c.Set(ContextUserRole, claims.Role)

		c.Next()
	}
}

// respondWithError aborts with the standard APIError envelope
func respondWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.NewAPIError(code, message))
}
