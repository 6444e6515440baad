package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                         // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp" // exposition handler for /metrics

	"github.com/iliyamo/active-breaks/internal/config"     // rate limit settings
	"github.com/iliyamo/active-breaks/internal/handler"    // HTTP handlers
	"github.com/iliyamo/active-breaks/internal/middleware" // bearer auth and rate limiting
	"github.com/iliyamo/active-breaks/internal/ratelimit"  // limiter backing the /auth group
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, ready map[string]handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(ready))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers every /auth route.  The whole group sits behind the
// sliding-window limiter, so a rejected request never reaches credential
// checks.  Only /auth/me additionally needs a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn middleware.Authenticator, l ratelimit.Limiter, rl config.RateLimitConfig) {
	g := e.Group("/auth", middleware.RateLimit(l, rl))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// The refresh token travels only in the http-only cookie.
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	g.GET("/me", a.Me, middleware.JWTAuth(authn))
}

// RegisterSettings registers the per-user settings routes behind bearer auth.
func RegisterSettings(e *echo.Echo, s *handler.SettingsHandler, authn middleware.Authenticator) {
	g := e.Group("/settings", middleware.JWTAuth(authn))
	g.GET("/me", s.GetMine)
	g.PUT("/me", s.UpdateMine)
}

// RegisterHistory registers break-session and daily-record routes behind
// bearer auth.
func RegisterHistory(e *echo.Echo, h *handler.HistoryHandler, authn middleware.Authenticator) {
	g := e.Group("/history", middleware.JWTAuth(authn))
	g.GET("/sessions", h.ListSessions)
	g.POST("/sessions", h.CreateSession)
	g.PATCH("/sessions/:id/complete", h.CompleteSession)
	g.GET("/daily-records", h.ListDailyRecords)
	g.PUT("/daily-records/:date/expected", h.UpdateExpected)
}
