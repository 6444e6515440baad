package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                  // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Recover, RequestID and CORS
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/active-breaks/internal/auth"
	"github.com/iliyamo/active-breaks/internal/config" // Internal config loader
	"github.com/iliyamo/active-breaks/internal/database"
	"github.com/iliyamo/active-breaks/internal/handler"
	"github.com/iliyamo/active-breaks/internal/history"
	"github.com/iliyamo/active-breaks/internal/logging"
	"github.com/iliyamo/active-breaks/internal/mail"
	"github.com/iliyamo/active-breaks/internal/middleware"
	"github.com/iliyamo/active-breaks/internal/queue"
	"github.com/iliyamo/active-breaks/internal/ratelimit"
	"github.com/iliyamo/active-breaks/internal/repository"
	"github.com/iliyamo/active-breaks/internal/router" // Internal router setup
	"github.com/iliyamo/active-breaks/internal/settings"
	"github.com/iliyamo/active-breaks/internal/utils"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("config.dotenv.fail", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load() // Load environment config
	if err != nil {
		slog.Error("config.load.fail", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server.exit", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		log.Info("db.schema.ensured")
	}
	store := repository.NewSQLStore(db)

	codec, err := utils.NewTokenCodec(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTTL(), cfg.RefreshTTL(), nil)
	if err != nil {
		return err
	}

	rlCfg := config.LoadRateLimitConfig()
	var rdb *redis.Client
	if rlCfg.Backend == "redis" {
		rdb = config.NewRedisClient(ctx)
		if rdb == nil {
			log.Warn("ratelimit.redis.unavailable", "fallback", "memory")
		} else {
			defer rdb.Close()
		}
	}
	limiter := newLimiter(ctx, rlCfg, rdb)

	smtpCfg := mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		ResetURL: cfg.FrontendResetURL,
	}
	direct := directSender(cfg, smtpCfg, log)
	var mailer auth.ResetMailer = direct
	if cfg.MailTransport == "queue" {
		mailer = queue.Publisher{URL: cfg.RabbitMQURL, Log: log}
		consumer := &queue.Consumer{URL: cfg.RabbitMQURL, Mail: direct, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("queue.consumer.exit", "err", err)
			}
		}()
	}

	authSvc := auth.NewService(store, codec, utils.NewBcryptHasher(cfg.BcryptCost), mailer, log, auth.Config{
		ResetTokenTTL: cfg.ResetTokenTTL,
	})
	historySvc := history.NewService(store, log)
	settingsSvc := settings.NewService(store, nil)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendOrigin},
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	ready := map[string]handler.Pinger{"mysql": db}
	if rdb != nil {
		ready["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	router.RegisterRoutes(e, ready) // Register operational routes
	router.RegisterAuth(e,
		handler.NewAuthHandler(authSvc, handler.CookieConfig{
			Name:   cfg.RefreshCookieName,
			Secure: cfg.CookieSecure,
			TTL:    cfg.RefreshTTL(),
		}),
		authSvc, limiter, rlCfg)
	router.RegisterSettings(e, handler.NewSettingsHandler(settingsSvc), authSvc)
	router.RegisterHistory(e, handler.NewHistoryHandler(historySvc), authSvc)

	addr := ":" + cfg.Port // Address string with port
	errCh := make(chan error, 1)
	go func() {
		log.Info("server.listen", "addr", addr, "env", cfg.Env, "mail", cfg.MailTransport, "ratelimit", rlCfg.Backend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("server.shutdown.fail", "err", err)
	}
	authSvc.WaitDeliveries()
	log.Info("server.stopped")
	return nil
}

// newLimiter picks the shared Redis window when a client is available and the
// in-process window otherwise.  The in-process window gets a sweeper bound
// to ctx.
func newLimiter(ctx context.Context, rl config.RateLimitConfig, rdb *redis.Client) ratelimit.Limiter {
	if rl.Backend == "redis" && rdb != nil {
		return ratelimit.NewRedisSlidingWindow(rdb, rl.Limit, rl.Window, rl.RetryAfter)
	}
	w := ratelimit.NewSlidingWindow(rl.Limit, rl.Window, rl.RetryAfter, nil)
	go w.RunSweeper(ctx, rl.SweepInterval)
	return w
}

// directSender is the transport that actually delivers mail: SMTP when it is
// configured (throttled), otherwise the log fallback.
func directSender(cfg config.Config, smtpCfg mail.SMTPConfig, log *slog.Logger) mail.Sender {
	if cfg.MailTransport != "log" && smtpCfg.Configured() {
		return mail.NewThrottled(mail.SMTPSender{Cfg: smtpCfg}, cfg.MailRatePerMin)
	}
	if cfg.MailTransport == "smtp" {
		log.Warn("mail.smtp.not_configured", "fallback", "log")
	}
	return mail.LogSender{ResetURL: cfg.FrontendResetURL, Log: log}
}
