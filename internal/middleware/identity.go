package middleware // identity helpers shared by the auth, role and rate-limit middleware

import (
	"strings" // scheme comparison and trimming of the Authorization header

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/manufacturer-api/internal/utils"
)

// Context keys set by JWTAuth. Handlers read them through Email and Claims
// rather than calling c.Get directly.
const (
	ctxEmail  = "email"
	ctxClaims = "claims"
)

// Email returns the verified caller email, or "" on unauthenticated routes.
func Email(c echo.Context) string {
	if v, ok := c.Get(ctxEmail).(string); ok {
		return v
	}
	return ""
}

// Claims returns the decoded token payload set by JWTAuth.
func Claims(c echo.Context) (*utils.Claims, bool) {
	cl, ok := c.Get(ctxClaims).(*utils.Claims)
	return cl, ok
}

// bearerToken splits an Authorization header into its scheme word and token.
// The scheme is matched case-insensitively ("Bearer", "bearer", "BEARER").
// It reports false when the scheme is not bearer or the token is empty.
func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// callerKey identifies the caller for rate limiting. The limiter runs ahead
// of the route-level JWTAuth, so when no email has been set yet the bearer
// token is parsed here on a best-effort basis. Missing or invalid tokens all
// share the "anon" identity; the route's own auth still rejects them.
func callerKey(c echo.Context, secret string) string {
	if e := Email(c); e != "" {
		return e
	}
	if secret == "" {
		return "anon"
	}
	raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return "anon"
	}
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return "anon"
	}
	return claims.Email
}
