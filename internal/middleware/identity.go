package middleware

// identity.go defines the context keys shared across middleware files and
// the helpers handlers use to read the authenticated user back.

import (
    "log/slog"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/active-breaks/internal/model"
)

const (
    userKey   = "user"
    userIDKey = "user_id"
    loggerKey = "logger"
)

// CurrentUser returns the user stored by JWTAuth.
func CurrentUser(c echo.Context) (model.User, bool) {
    u, ok := c.Get(userKey).(model.User)
    return u, ok
}

// userID returns the authenticated user id or "anon" on public routes.
func userID(c echo.Context) string {
    if s, ok := c.Get(userIDKey).(string); ok && s != "" {
        return s
    }
    return "anon"
}

// logger returns the request-scoped logger installed by RequestLogger, or
// the default logger.
func logger(c echo.Context) *slog.Logger {
    if l, ok := c.Get(loggerKey).(*slog.Logger); ok && l != nil {
        return l
    }
    return slog.Default()
}

// Logger is logger for handlers.
func Logger(c echo.Context) *slog.Logger { return logger(c) }
