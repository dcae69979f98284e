package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"lotline/internal/core/apperror"
	"lotline/internal/core/identity"
)

// TokenValidator verifies a bearer token and resolves the caller.
type TokenValidator interface {
	ValidateToken(tokenString string) (*identity.Identity, error)
}

// Auth middleware validates JWT tokens and populates the caller identity.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		ident, err := validator.ValidateToken(parts[1])
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		ctx := identity.WithIdentity(c.Request.Context(), *ident)
		c.Request = c.Request.WithContext(ctx)

		c.Set("actor_id", ident.ActorID)
		c.Set("tenant_id", ident.TenantID)

		c.Next()
	}
}

// RequireRole middleware checks if the caller has one of the roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := identity.Get(c.Request.Context())
		if ident == nil {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		for _, required := range roles {
			if ident.HasRole(required) {
				c.Next()
				return
			}
		}
		_ = c.Error(
			apperror.NewForbidden("insufficient permissions").
				WithDetail("required_roles", roles),
		)
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
