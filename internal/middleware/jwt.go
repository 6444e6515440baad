package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"  // context for the user lookup
    "errors"   // matching the inactive-account sentinel
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/active-breaks/internal/auth"  // ErrUserInactive
    "github.com/iliyamo/active-breaks/internal/model" // user record placed in the context
)

// Authenticator resolves a raw access token to an active user.  The auth
// service implements it: it verifies signature, expiry and token type and
// then reloads the user so a deactivated account is refused even while its
// token is still unexpired.
type Authenticator interface {
    Authenticate(ctx context.Context, accessToken string) (model.User, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the authenticated user into the request context.  Handlers
// read it back with CurrentUser or c.Get("user_id").
func JWTAuth(a Authenticator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            header := c.Request().Header.Get("Authorization")
            if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(header[7:])

            u, err := a.Authenticate(c.Request().Context(), raw)
            if err != nil {
                logger(c).Debug("auth.bearer.reject", "err", err)
                if errors.Is(err, auth.ErrUserInactive) {
                    return c.JSON(http.StatusForbidden, echo.Map{"error": "user inactive"})
                }
                // Signature, expiry, type and missing-user failures all look
                // the same to the client.
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
            }

            c.Set(userKey, u)
            c.Set(userIDKey, u.ID)
            return next(c)
        }
    }
}
