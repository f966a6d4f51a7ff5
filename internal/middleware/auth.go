package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbmc/portal-api/internal/handler"
	"github.com/kbmc/portal-api/pkg/auth"
	apperrors "github.com/kbmc/portal-api/pkg/errors"
)

// RoleContextKey is where the caller's role is stored on the gin context.
const RoleContextKey = handler.RoleKey

type AuthMiddleware struct {
	roles auth.RoleService
}

func NewAuthMiddleware(roles auth.RoleService) *AuthMiddleware {
	return &AuthMiddleware{roles: roles}
}

// Authenticate verifies the bearer token and stores the caller's role.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, apperrors.NewUnauthorized("missing authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWith(c, apperrors.NewUnauthorized("invalid authorization format"))
			return
		}

		role, err := m.roles.RoleFromToken(parts[1])
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			abortWith(c, apperrors.NewUnauthorized(msg))
			return
		}

		c.Set(RoleContextKey, role)
		c.Next()
	}
}

// RequireOwnRole rejects reads that ask for another role's notifications.
func (m *AuthMiddleware) RequireOwnRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		if q := c.Query("role"); q != "" && q != c.GetString(RoleContextKey) {
			abortWith(c, apperrors.NewForbidden("role does not match token"))
			return
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, err error) {
	handler.RespondError(c, err)
	c.Abort()
}
