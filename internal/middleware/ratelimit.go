package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/active-breaks/internal/config"
    "github.com/iliyamo/active-breaks/internal/metrics"
    "github.com/iliyamo/active-breaks/internal/ratelimit"
)

// RateLimit gates requests through a sliding-window limiter keyed by client
// IP and request path.  It runs before any handler so rejected requests never
// reach persistence or credential checks.  Backend errors fail open.
func RateLimit(l ratelimit.Limiter, cfg config.RateLimitConfig) echo.MiddlewareFunc {
    if !cfg.Enabled || l == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)

            d, err := l.Allow(c.Request().Context(), key)
            if err != nil {
                logger(c).Warn("ratelimit.backend.fail", "key", key, "err", err)
                return next(c)
            }

            c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
            c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

            if !d.Allowed {
                secs := int(math.Ceil(d.RetryAfter.Seconds()))
                if secs < 0 { secs = 0 }
                c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
                metrics.RateLimitRejections.WithLabelValues(c.Request().URL.Path).Inc()
                if cfg.Debug {
                    logger(c).Info("ratelimit.block", "key", key, "user_id", userID(c), "retry_after", secs)
                }
                return c.JSON(http.StatusTooManyRequests, map[string]any{
                    "error":       "too_many_requests",
                    "message":     "too many requests, try again in 1 minute",
                    "retry_after": secs,
                })
            }

            if cfg.Debug {
                c.Response().Header().Set("X-RateLimit-Key", key)
            }
            return next(c)
        }
    }
}

// buildRateKey joins prefix, client IP and request path.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }
    return strings.Join([]string{cfg.Prefix, ip, c.Request().URL.Path}, ":")
}
