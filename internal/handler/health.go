package handler // declare the package name; contains HTTP handlers

import (
    "context"  // bounded dependency pings
    "net/http" // net/http provides status codes and response helpers
    "time"     // ping timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a simple liveness endpoint used by load balancers and
// monitoring systems to verify that the process is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Pinger is a dependency the readiness check checks.  *sql.DB satisfies it
// directly; Redis is adapted with PingFunc.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Ready reports 200 when every named dependency answers a ping within two
// seconds, and 503 with the failing names otherwise.  Nil pingers are
// skipped so optional backends do not need special casing.
func Ready(deps map[string]Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()

        status := map[string]string{}
        healthy := true
        for name, p := range deps {
            if p == nil {
                continue
            }
            if err := p.PingContext(ctx); err != nil {
                status[name] = err.Error()
                healthy = false
                continue
            }
            status[name] = "ok"
        }
        if !healthy {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "checks": status})
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ok", "checks": status})
    }
}
