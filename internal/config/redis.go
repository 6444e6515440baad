package config

// This file defines a Redis client constructor for the application.  Redis
// backs the shared rate limiter and is pinged by the readiness check.  The
// client parameters are loaded from environment variables.  If connection
// fails during startup, the function returns nil and callers fall back to
// the in-process limiter.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client using environment variables.
// Supported variables are:
//   REDIS_URL – full redis:// or rediss:// URL (takes precedence)
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
// The returned client is nil if a connection cannot be established.
func NewRedisClient(ctx context.Context) *redis.Client {
    opts, ok := redisOptionsFromEnv()
    if !ok {
        return nil
    }
    client := redis.NewClient(opts)
    // Ping the server with a short timeout.  Return nil on failure.
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}

func redisOptionsFromEnv() (*redis.Options, bool) {
    if raw := os.Getenv("REDIS_URL"); raw != "" {
        opts, err := redis.ParseURL(raw)
        if err != nil {
            return nil, false
        }
        return opts, true
    }
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := os.Getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
        tlsConf = &tls.Config{ServerName: strings.Split(addr, ":")[0]}
    }
    return &redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    }, true
}
