package middleware // role-based authorization on top of JWTAuth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/manufacturer-api/internal/logger"
	"github.com/iliyamo/manufacturer-api/internal/model"
	"github.com/iliyamo/manufacturer-api/internal/repository"
)

// RoleSource resolves the stored role for an email. repository.RoleResolver
// is the production implementation.
type RoleSource interface {
	Role(ctx context.Context, email string) (string, error)
}

// RequireRole admits the request only if the caller's stored role is one of
// roles. It must run after JWTAuth. An unknown user is treated like any other
// non-matching role; a failed lookup is a 500.
func RequireRole(src RoleSource, roles ...string) echo.MiddlewareFunc {
	// Build the allow-set once at registration time.
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// JWTAuth must have run first; without an identity there is
			// nothing to look up.
			email := Email(c)
			if email == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden access"})
			}
			// One lookup per request, served from the role cache when
			// Redis is configured.
			ctx := c.Request().Context()
			role, err := src.Role(ctx, email)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden access"})
			case err != nil:
				logger.FromCtx(ctx).Error("role lookup failed", zap.String("email", email), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			case !allowed[role]:
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden access"})
			}
			return next(c)
		}
	}
}

// RequireAdmin is RequireRole for the admin role.
func RequireAdmin(src RoleSource) echo.MiddlewareFunc {
	return RequireRole(src, model.RoleAdmin)
}
