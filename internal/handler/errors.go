package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/active-breaks/internal/auth"
    "github.com/iliyamo/active-breaks/internal/history"
    "github.com/iliyamo/active-breaks/internal/middleware"
    "github.com/iliyamo/active-breaks/internal/settings"
)

// writeError maps a service error onto the HTTP status table and writes the
// {"error": msg} body.  Unknown errors become a logged 500.
func writeError(c echo.Context, err error) error {
    status, msg := classify(err)
    if status == http.StatusInternalServerError {
        middleware.Logger(c).Error("http.internal_error",
            "method", c.Request().Method, "path", c.Path(), "err", err)
    }
    return c.JSON(status, echo.Map{"error": msg})
}

func classify(err error) (int, string) {
    switch {
    case errors.Is(err, auth.ErrInvalidCredentials):
        return http.StatusUnauthorized, "invalid credentials"
    case errors.Is(err, auth.ErrUserInactive):
        return http.StatusForbidden, "user inactive"
    case errors.Is(err, auth.ErrEmailTaken):
        return http.StatusConflict, "email already exists"
    case auth.IsInvalidSession(err):
        return http.StatusUnauthorized, "invalid session"
    case errors.Is(err, auth.ErrInvalidOrExpiredResetToken):
        return http.StatusBadRequest, "invalid or expired token"
    case errors.Is(err, auth.ErrInvalidInput),
        errors.Is(err, history.ErrInvalidInput),
        errors.Is(err, history.ErrInvalidRange),
        errors.Is(err, settings.ErrInvalidInput):
        return http.StatusBadRequest, err.Error()
    case errors.Is(err, history.ErrSessionNotFound):
        return http.StatusNotFound, "session not found"
    case errors.Is(err, history.ErrAlreadyCompleted):
        return http.StatusConflict, "session already completed"
    }
    return http.StatusInternalServerError, "internal error"
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
