package middleware

import (
    "log/slog"
    "time"

    "github.com/labstack/echo/v4"
)

// RequestLogger installs a request-scoped slog logger (tagged with the
// request id) and logs one line per request once the handler returns.
// It expects echo's RequestID middleware to run first.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()
            rid := c.Response().Header().Get(echo.HeaderXRequestID)
            if rid == "" {
                rid = req.Header.Get(echo.HeaderXRequestID)
            }
            log := base.With("request_id", rid)
            c.Set(loggerKey, log)

            err := next(c)
            if err != nil {
                // Let echo write the error response so the logged status is final.
                c.Error(err)
            }

            log.Info("http.request",
                "method", req.Method,
                "path", req.URL.Path,
                "status", c.Response().Status,
                "duration_ms", time.Since(start).Milliseconds(),
                "remote", c.RealIP(),
                "user_id", userID(c),
            )
            return nil
        }
    }
}
