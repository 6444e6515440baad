package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig configures the sliding-window limiter on /auth routes.
// Backend "memory" keeps windows in process; "redis" shares them through
// Redis and falls back to memory when no client is available.
type RateLimitConfig struct {
    Enabled       bool
    Backend       string
    Limit         int
    Window        time.Duration
    RetryAfter    time.Duration
    SweepInterval time.Duration
    Prefix        string
    Debug         bool
}

func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:       envBool("RATE_LIMIT_ENABLED", true),
        Backend:       envStr("RATE_LIMIT_BACKEND", "memory"),
        Limit:         envInt("RATE_LIMIT_LIMIT", 30),
        Window:        envDur("RATE_LIMIT_WINDOW", time.Minute),
        RetryAfter:    envDur("RATE_LIMIT_RETRY_AFTER", time.Minute),
        SweepInterval: envDur("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
        Prefix:        envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:         envBool("RATE_LIMIT_DEBUG", false),
    }
    if def.Limit < 1 { def.Limit = 1 }
    if def.Window <= 0 { def.Window = time.Minute }
    if def.RetryAfter <= 0 { def.RetryAfter = def.Window }
    if def.SweepInterval <= 0 { def.SweepInterval = 5 * def.Window }
    return def
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1","true","TRUE","True","yes","YES","on","ON": return true
    case "0","false","FALSE","False","no","NO","off","OFF": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
