package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/active-breaks/internal/middleware"
    "github.com/iliyamo/active-breaks/internal/settings"
)

// SettingsHandler serves /settings/me.
type SettingsHandler struct {
    Settings *settings.Service
}

func NewSettingsHandler(s *settings.Service) *SettingsHandler {
    return &SettingsHandler{Settings: s}
}

// GetMine returns the caller's settings, creating defaults on first read.
func (h *SettingsHandler) GetMine(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    s, err := h.Settings.Get(ctx, u.ID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toSettingsDTO(s))
}

// UpdateMine replaces the caller's settings.
func (h *SettingsHandler) UpdateMine(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
    }
    var req settingsDTO
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    in, err := req.toModel()
    if err != nil {
        return badRequest(c, err.Error())
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    s, err := h.Settings.Update(ctx, u.ID, in)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, toSettingsDTO(s))
}
