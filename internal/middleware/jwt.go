package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers
	"go.uber.org/zap"

	"github.com/iliyamo/manufacturer-api/internal/logger"
	"github.com/iliyamo/manufacturer-api/internal/utils"
)

// JWTAuth returns an Echo middleware that verifies the bearer token and
// exposes the caller through Email(c) and Claims(c). The provided secret
// must match the one used when issuing tokens at login.
//
// A request without an Authorization header gets 401. A header that does
// not carry a valid, unexpired token gets 403, so clients can tell "log in"
// apart from "your token is bad".
func JWTAuth(secret string) echo.MiddlewareFunc {
	// The outer function runs once when the middleware is registered.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		// The returned handler runs for each incoming request.
		return func(c echo.Context) error {
			// No header at all means the caller never tried to authenticate.
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized access"})
			}

			// Anything other than "<bearer> <token>" is a bad credential,
			// not a missing one. The scheme word is case-insensitive.
			raw, ok := bearerToken(auth)
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden access"})
			}

			// Verify signature, algorithm and expiry. Expired and tampered
			// tokens are both 403.
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				logger.FromCtx(c.Request().Context()).Debug("token rejected", zap.Error(err))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden access"})
			}

			// Store the identity for handlers and the role gate.
			c.Set(ctxEmail, claims.Email)
			c.Set(ctxClaims, claims)
			return next(c)
		}
	}
}
