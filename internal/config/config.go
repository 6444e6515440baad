package config // package config loads application configuration from environment variables

import (
    "errors"  // errors joins every configuration problem into one report
    "fmt"     // fmt formats configuration errors
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings normalizes enum-like values
    "time"    // time expresses token lifetimes

    "github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required variables are reported together by
// Load; everything else falls back to a default.
type Config struct {
    Env               string        // application environment (e.g. "dev", "prod")
    Port              string        // HTTP port to listen on
    LogLevel          string        // debug | info | warn | error
    DBUser            string        // database username
    DBPass            string        // database password (optional)
    DBHost            string        // database host address
    DBPort            string        // database port number
    DBName            string        // database name
    DBAutoMigrate     bool          // create missing tables at startup
    JWTSecret         string        // secret used to sign access tokens
    RefreshSecret     string        // secret used to sign refresh tokens; must differ from JWTSecret
    AccessTTLMin      int           // access token time‑to‑live in minutes
    RefreshTTLDays    int           // refresh token time‑to‑live in days
    ResetTokenTTL     time.Duration // password reset token lifetime
    BcryptCost        int           // bcrypt cost for password hashing
    RefreshCookieName string        // name of the http-only refresh cookie
    CookieSecure      bool          // Secure attribute of the refresh cookie
    FrontendOrigin    string        // allowed CORS origin (credentials enabled)
    FrontendResetURL  string        // base of the link mailed for password resets
    MailTransport     string        // log | smtp | queue
    MailRatePerMin    int           // outbound reset mails per minute
    SMTPHost          string        // SMTP relay host (empty disables SMTP)
    SMTPPort          int           // SMTP relay port (STARTTLS)
    SMTPUser          string        // SMTP username
    SMTPPassword      string        // SMTP password
    SMTPFrom          string        // From header of reset mails
    RabbitMQURL       string        // broker URL for the queue transport
}

// AccessTTL is AccessTTLMin as a duration.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL is RefreshTTLDays as a duration.
func (c Config) RefreshTTL() time.Duration { return time.Duration(c.RefreshTTLDays) * 24 * time.Hour }

// LoadDotEnv loads .env (or the given files) when present.  A missing file is
// not an error; variables already set in the environment win.
func LoadDotEnv(files ...string) error {
    if len(files) == 0 {
        files = []string{".env"}
    }
    var present []string
    for _, f := range files {
        if _, err := os.Stat(f); err == nil {
            present = append(present, f)
        }
    }
    if len(present) == 0 {
        return nil
    }
    return godotenv.Load(present...)
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing required variables and malformed values are reported
// together in the returned error.
func Load() (Config, error) {
    l := &loader{}
    cfg := Config{
        Env:               envStr("APP_ENV", "dev"),             // environment (dev/test/prod)
        Port:              envStr("APP_PORT", "8000"),           // port to bind the HTTP server
        LogLevel:          envStr("LOG_LEVEL", "info"),          // slog level
        DBUser:            l.must("DB_USER"),                    // database user
        DBPass:            os.Getenv("DB_PASS"),                 // database password (empty allowed)
        DBHost:            envStr("DB_HOST", "127.0.0.1"),       // database host
        DBPort:            envStr("DB_PORT", "3306"),            // database port
        DBName:            l.must("DB_NAME"),                    // database name
        DBAutoMigrate:     envBool("DB_AUTO_MIGRATE", false),    // run EnsureSchema on boot
        JWTSecret:         l.must("JWT_SECRET"),                 // access token secret
        RefreshSecret:     l.must("REFRESH_SECRET"),             // refresh token secret
        AccessTTLMin:      l.intOr("ACCESS_TOKEN_TTL_MIN", 15),  // TTL for access tokens in minutes
        RefreshTTLDays:    l.intOr("REFRESH_TOKEN_TTL_DAYS", 14), // TTL for refresh tokens in days
        ResetTokenTTL:     envDur("RESET_TOKEN_TTL", 30*time.Minute),
        BcryptCost:        l.intOr("BCRYPT_COST", 12),
        RefreshCookieName: envStr("REFRESH_COOKIE_NAME", "pausas_refresh_token"),
        CookieSecure:      envBool("COOKIE_SECURE", true),
        FrontendOrigin:    envStr("FRONTEND_ORIGIN", "http://localhost:5173"),
        FrontendResetURL:  envStr("FRONTEND_RESET_URL", "http://localhost:5173/reset-password"),
        MailTransport:     strings.ToLower(envStr("MAIL_TRANSPORT", "log")),
        MailRatePerMin:    l.intOr("MAIL_RATE_PER_MIN", 30),
        SMTPHost:          os.Getenv("SMTP_HOST"),
        SMTPPort:          l.intOr("SMTP_PORT", 587),
        SMTPUser:          os.Getenv("SMTP_USER"),
        SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
        SMTPFrom:          envStr("SMTP_FROM", "no-reply@pausasactivas.local"),
        RabbitMQURL:       firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
    }

    if cfg.JWTSecret != "" && cfg.JWTSecret == cfg.RefreshSecret {
        l.errs = append(l.errs, errors.New("JWT_SECRET and REFRESH_SECRET must differ"))
    }
    if cfg.AccessTTLMin <= 0 || cfg.RefreshTTLDays <= 0 {
        l.errs = append(l.errs, errors.New("token TTLs must be positive"))
    }
    switch cfg.MailTransport {
    case "log", "smtp", "queue":
    default:
        l.errs = append(l.errs, fmt.Errorf("MAIL_TRANSPORT must be log, smtp or queue, got %q", cfg.MailTransport))
    }
    if err := errors.Join(l.errs...); err != nil {
        return Config{}, fmt.Errorf("config: %w", err)
    }
    return cfg, nil
}

// loader accumulates problems so that one run reports all of them.
type loader struct{ errs []error }

// must retrieves the value of a required environment variable and records
// an error when it is unset or empty.
func (l *loader) must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
    }
    return v
}

// intOr is like envInt but records malformed values instead of silently
// using the default.
func (l *loader) intOr(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
        return def
    }
    return n
}

func firstNonEmpty(vals ...string) string {
    for _, v := range vals {
        if v != "" {
            return v
        }
    }
    return ""
}
