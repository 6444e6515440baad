// Command seed creates (or reuses) a demo account and fills its break
// history with a repeating high/medium/low compliance pattern.
//
//	go run ./cmd/seed -email demo@example.com -password 'demo-pass' -days 30
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/iliyamo/active-breaks/internal/auth"
	"github.com/iliyamo/active-breaks/internal/config"
	"github.com/iliyamo/active-breaks/internal/database"
	"github.com/iliyamo/active-breaks/internal/history"
	"github.com/iliyamo/active-breaks/internal/logging"
	"github.com/iliyamo/active-breaks/internal/model"
	"github.com/iliyamo/active-breaks/internal/repository"
	"github.com/iliyamo/active-breaks/internal/utils"
)

var exercisePool = []string{
	"visual-20-20-20",
	"cuello-lateral",
	"hombros-rotacion",
	"manos-circulos",
	"espalda-gato",
}

// compliance pattern in percent, one entry per day
var pattern = []int{100, 75, 50, 25, 0, 75, 50}

type daySeed struct{ expected, started, completed int }

func main() {
	email := flag.String("email", "", "demo user email (required)")
	password := flag.String("password", "", "demo user password (required)")
	days := flag.Int("days", 30, "number of days to seed, ending today")
	expected := flag.Int("expected", model.DefaultSessionsExpected, "expected sessions per day")
	active := flag.Bool("active", true, "leave the account active; -active=false deactivates it")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	if err := run(context.Background(), cfg, log, *email, *password, max(1, *days), max(0, *expected), *active); err != nil {
		log.Error("seed.fail", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, email, password string, days, expected int, active bool) error {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}
	store := repository.NewSQLStore(db)

	codec, err := utils.NewTokenCodec(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTTL(), cfg.RefreshTTL(), nil)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(store, codec, utils.NewBcryptHasher(cfg.BcryptCost), nil, log, auth.Config{})
	historySvc := history.NewService(store, log)

	user, err := ensureUser(ctx, authSvc, email, password)
	if err != nil {
		return err
	}

	today := model.Day(time.Now())
	seeded, skipped := 0, 0
	for offset := days - 1; offset >= 0; offset-- {
		day := today.AddDate(0, 0, -offset)
		idx := days - 1 - offset
		existing, err := historySvc.ListDailyRecords(ctx, user.ID, day, day)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			skipped++
			continue
		}
		if err := seedDay(ctx, historySvc, user.ID, day, idx, computeDay(idx, expected)); err != nil {
			return fmt.Errorf("seed %s: %w", day.Format("2006-01-02"), err)
		}
		seeded++
	}

	if _, err := authSvc.SetActive(ctx, email, active); err != nil {
		return err
	}
	log.Info("seed.done", "email", user.Email, "days_seeded", seeded, "days_skipped_existing", skipped,
		"expected_per_day", expected, "active", active)
	return nil
}

// ensureUser registers the account, or checks the password of an existing one.
func ensureUser(ctx context.Context, a *auth.Service, email, password string) (model.User, error) {
	sess, err := a.Register(ctx, email, password)
	if err == nil {
		return sess.User, nil
	}
	if !errors.Is(err, auth.ErrEmailTaken) {
		return model.User{}, err
	}
	sess, err = a.Login(ctx, email, password)
	if errors.Is(err, auth.ErrUserInactive) {
		if _, err := a.SetActive(ctx, email, true); err != nil {
			return model.User{}, err
		}
		sess, err = a.Login(ctx, email, password)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("existing account %s: %w", email, err)
	}
	return sess.User, nil
}

func computeDay(idx, expected int) daySeed {
	pct := pattern[idx%len(pattern)]
	completed := 0
	if expected > 0 {
		completed = int(math.RoundToEven(float64(pct*expected) / 100))
		completed = max(0, min(expected, completed))
	}
	started := completed
	if idx%3 == 0 && completed < expected {
		started++
	}
	if pct == 0 {
		started = 0
		if idx%2 == 1 {
			started = min(1, expected)
		}
	}
	return daySeed{expected: expected, started: started, completed: completed}
}

func seedDay(ctx context.Context, h *history.Service, userID string, day time.Time, idx int, s daySeed) error {
	if _, err := h.UpdateExpected(ctx, userID, day, s.expected); err != nil {
		return err
	}
	for i := 0; i < s.started; i++ {
		startedAt := day.Add(time.Duration(9+i%8)*time.Hour + time.Duration((i*7)%60)*time.Minute)
		planned := 10 * 60
		sess, err := h.CreateSession(ctx, userID, history.NewSession{
			Date:                   day,
			StartedAt:              startedAt,
			ExerciseIDs:            []string{exercisePool[(idx+i)%len(exercisePool)]},
			DurationPlannedSeconds: planned,
		})
		if err != nil {
			return err
		}
		if i < s.completed {
			actual := planned - (idx+i)%90
			if _, err := h.CompleteSession(ctx, userID, sess.ID, startedAt.Add(time.Duration(actual)*time.Second), actual); err != nil {
				return err
			}
		}
	}
	return nil
}
