package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/physiokit/portal-api/internal/handler"
	authService "github.com/physiokit/portal-api/internal/service/auth"
)

const (
	ContextUserID   = "user_id"
	ContextClinicID = "clinic_id"
	ContextRole     = "role"
)

type AuthMiddleware struct {
	authService authService.AuthService
}

func NewAuthMiddleware(svc authService.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: svc}
}

// Authenticate verifies the JWT token and sets admin info in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.authService.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextClinicID, claims.ClinicID)
		c.Set(ContextRole, claims.Role)

		// Services read the actor from the request context.
		ctx := context.WithValue(c.Request.Context(), ContextUserID, claims.UserID)
		ctx = context.WithValue(ctx, ContextClinicID, claims.ClinicID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireAdmin rejects requests from non back-office roles. Access mutations
// assume an already-authorized admin caller.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role != "owner" && role != "staff" {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
