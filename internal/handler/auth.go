package handler

import (
    "context"  // provides context with cancellation for service calls
    "net/http" // HTTP status codes and primitives
    "time"     // timeouts for service calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/active-breaks/internal/auth"       // session lifecycle
    "github.com/iliyamo/active-breaks/internal/middleware" // authenticated user lookup
)

// requestTimeout bounds the work of a single request.
const requestTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Auth   *auth.Service
    Cookie CookieConfig
}

func NewAuthHandler(a *auth.Service, cookie CookieConfig) *AuthHandler {
    if cookie.TTL <= 0 {
        cookie.TTL = a.RefreshTTL()
    }
    return &AuthHandler{Auth: a, Cookie: cookie}
}

// Register: create user, store default settings and open a session.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    sess, err := h.Auth.Register(ctx, req.Email, req.Password)
    if err != nil {
        return writeError(c, err)
    }
    h.Cookie.set(c, sess.RefreshToken)
    return c.JSON(http.StatusCreated, toAuthResp(sess))
}

// Login: verify credentials and open a session.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    sess, err := h.Auth.Login(ctx, req.Email, req.Password)
    if err != nil {
        return writeError(c, err)
    }
    h.Cookie.set(c, sess.RefreshToken)
    return c.JSON(http.StatusOK, toAuthResp(sess))
}

// Refresh: rotate the refresh cookie and issue a new access token.  Any
// session failure clears the cookie so the client stops replaying it.
func (h *AuthHandler) Refresh(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    sess, err := h.Auth.Refresh(ctx, h.Cookie.read(c))
    if err != nil {
        if auth.IsInvalidSession(err) {
            middleware.Logger(c).Debug("auth.refresh.rotate.fail", "err", err)
            h.Cookie.clear(c)
        }
        return writeError(c, err)
    }
    h.Cookie.set(c, sess.RefreshToken)
    return c.JSON(http.StatusOK, toAuthResp(sess))
}

// Logout: revoke the cookie's token if active and clear it.  Always ok.
func (h *AuthHandler) Logout(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    h.Auth.Logout(ctx, h.Cookie.read(c))
    h.Cookie.clear(c)
    return c.JSON(http.StatusOK, okResp{OK: true})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
    }
    return c.JSON(http.StatusOK, toUserResp(u))
}

// ForgotPassword answers ok whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
    var req forgotPasswordReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Auth.ForgotPassword(ctx, req.Email); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, okResp{OK: true})
}

// ResetPassword redeems a reset token; every session of the user ends.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
    var req resetPasswordReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Auth.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, okResp{OK: true})
}
