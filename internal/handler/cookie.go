package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// CookieConfig scopes the refresh-token cookie.
type CookieConfig struct {
    Name   string
    Secure bool
    TTL    time.Duration
}

// DefaultRefreshCookieName is used when no name is configured.
const DefaultRefreshCookieName = "pausas_refresh_token"

func (cc CookieConfig) name() string {
    if cc.Name == "" {
        return DefaultRefreshCookieName
    }
    return cc.Name
}

func (cc CookieConfig) set(c echo.Context, raw string) {
    c.SetCookie(&http.Cookie{
        Name:     cc.name(),
        Value:    raw,
        Path:     "/",
        MaxAge:   int(cc.TTL / time.Second),
        HttpOnly: true,
        Secure:   cc.Secure,
        SameSite: http.SameSiteLaxMode,
    })
}

func (cc CookieConfig) clear(c echo.Context) {
    c.SetCookie(&http.Cookie{
        Name:     cc.name(),
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   cc.Secure,
        SameSite: http.SameSiteLaxMode,
    })
}

// read returns the raw refresh token or "" when the cookie is absent.
func (cc CookieConfig) read(c echo.Context) string {
    ck, err := c.Cookie(cc.name())
    if err != nil {
        return ""
    }
    return ck.Value
}
