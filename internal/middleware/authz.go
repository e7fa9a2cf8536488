package middleware

import (
	"errors"
	"net/http"
	"strings"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// TokenParser validates an access token and returns its claims.
type TokenParser interface {
	ParseAccessToken(token string) (*services.Claims, error)
}

// Authenticate requires a valid bearer token and stores the caller's id
// (uuid.UUID) and role (models.Role) on the context.
func Authenticate(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token_format",
				"message": "Authorization header must use Bearer token",
			})
			return
		}

		claims, err := parser.ParseAccessToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = "expired_token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   code,
				"message": "Token validation failed",
			})
			return
		}

		userID, _ := uuid.FromString(claims.UserID)
		role, err := models.ParseRole(claims.Role)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_claims",
				"message": "Token claims are invalid",
			})
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserRole, role)
		c.Next()
	}
}

// RequireRole lets the request through only when the authenticated caller
// has one of roles. Admins always pass.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if caller.IsAdmin() {
			c.Next()
			return
		}
		for _, role := range roles {
			if caller.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "insufficient_role",
			"message": "User role does not have access to this resource",
		})
	}
}

// CallerFrom returns the principal set by Authenticate.
func CallerFrom(c *gin.Context) (services.Caller, bool) {
	id, ok := c.Get(ContextUserID)
	if !ok {
		return services.Caller{}, false
	}
	userID, ok := id.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return services.Caller{}, false
	}
	role, _ := c.Get(ContextUserRole)
	r, _ := role.(models.Role)
	return services.Caller{ID: userID, Role: r}, true
}
