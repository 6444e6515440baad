// Package auth implements the session lifecycle: registration, login,
// refresh-token rotation, logout and password reset.  Every ledger
// mutation runs inside one repository transaction so that revoke-then-issue
// and revoke-all sequences are atomic against concurrent requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/active-breaks/internal/metrics"
	"github.com/iliyamo/active-breaks/internal/model"
	"github.com/iliyamo/active-breaks/internal/repository"
	"github.com/iliyamo/active-breaks/internal/utils"
)

// PasswordHasher is the opaque hash/verify capability.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
	// VerifyDummy burns one verification for unknown accounts.
	VerifyDummy(plain string)
}

// ResetMailer delivers a raw reset token to a user.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, rawToken string) error
}

// Config tunes the service.  Zero values fall back to defaults.
type Config struct {
	ResetTokenTTL time.Duration
	MailTimeout   time.Duration
	Now           func() time.Time
}

// DefaultResetTokenTTL is how long a password reset link stays valid.
const DefaultResetTokenTTL = 30 * time.Minute

// Session is the result of a successful register, login or refresh.  The
// refresh token travels in a cookie; the rest in the response body.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             model.User
}

type Service struct {
	store  repository.Store
	codec  *utils.TokenCodec
	hasher PasswordHasher
	mailer ResetMailer
	log    *slog.Logger
	cfg    Config

	deliveries sync.WaitGroup
}

func NewService(store repository.Store, codec *utils.TokenCodec, hasher PasswordHasher, mailer ResetMailer, log *slog.Logger, cfg Config) *Service {
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = DefaultResetTokenTTL
	}
	if cfg.MailTimeout <= 0 {
		cfg.MailTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, codec: codec, hasher: hasher, mailer: mailer, log: log, cfg: cfg}
}

// RefreshTTL is the lifetime of issued refresh tokens.
func (s *Service) RefreshTTL() time.Duration { return s.codec.RefreshTTL() }

func (s *Service) now() time.Time { return s.cfg.Now().UTC() }

func (s *Service) record(op string, err error) {
	metrics.AuthOperations.WithLabelValues(op, outcome(err)).Inc()
}

// Register creates the account with default settings and opens a session.
func (s *Service) Register(ctx context.Context, email, password string) (out Session, err error) {
	defer func() { s.record("register", err) }()

	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return Session{}, err
	}
	if err := validatePassword(password); err != nil {
		return Session{}, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Users().FindByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup user: %w", err)
		}
		u := model.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		if err := tx.Settings().Upsert(ctx, model.DefaultSettings(u.ID, now)); err != nil {
			return fmt.Errorf("create settings: %w", err)
		}
		out, err = s.issue(ctx, tx, u, now)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	s.log.Info("auth.register.ok", "user_id", out.User.ID)
	return out, nil
}

// Login verifies credentials.  Unknown email and wrong password are the same
// failure to the caller.  The bcrypt compare runs between two short
// transactions so no connection is held while it works; the second one
// re-checks that the account did not change in between.
func (s *Service) Login(ctx context.Context, email, password string) (out Session, err error) {
	defer func() { s.record("login", err) }()

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	var u model.User
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		u, err = tx.Users().FindByEmail(ctx, email)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.VerifyDummy(password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}

	now := s.now()
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.Users().FindByID(ctx, u.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}
		// A password reset between the two transactions invalidates the
		// compare above.
		if cur.PasswordHash != u.PasswordHash {
			return ErrInvalidCredentials
		}
		if !cur.IsActive {
			return ErrUserInactive
		}
		out, err = s.issue(ctx, tx, cur, now)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return out, nil
}

// Refresh consumes the presented refresh token and issues a new pair.  The
// old row is revoked in the same transaction that stores the new one, so of
// two concurrent calls with the same token only one can succeed.
func (s *Service) Refresh(ctx context.Context, raw string) (out Session, err error) {
	defer func() { s.record("refresh", err) }()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, ErrNoSession
	}
	claims, err := s.codec.VerifyRefresh(raw)
	if err != nil {
		return Session{}, err
	}
	hash := utils.HashToken(raw)

	now := s.now()
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		row, err := tx.RefreshTokens().FindActiveForUpdate(ctx, hash, now)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotActive
		}
		if err != nil {
			return fmt.Errorf("lookup refresh token: %w", err)
		}
		if row.UserID != claims.Subject {
			return ErrSessionNotActive
		}
		u, err := tx.Users().FindByID(ctx, claims.Subject)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}
		if !u.IsActive {
			return ErrUserInactive
		}
		revoked, err := tx.RefreshTokens().Revoke(ctx, row.ID, now)
		if err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		if !revoked {
			return ErrSessionNotActive
		}
		out, err = s.issue(ctx, tx, u, now)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	return out, nil
}

// Logout revokes the presented refresh token if it is still active.  It
// never fails; problems are logged.
func (s *Service) Logout(ctx context.Context, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		s.record("logout", nil)
		return
	}
	hash := utils.HashToken(raw)
	now := s.now()
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		row, err := tx.RefreshTokens().FindActiveForUpdate(ctx, hash, now)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.RefreshTokens().Revoke(ctx, row.ID, now)
		return err
	})
	if err != nil {
		s.log.Warn("auth.logout.revoke.fail", "err", err)
	}
	s.record("logout", err)
}

// Me loads the user behind an authenticated request.
func (s *Service) Me(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		u, err = tx.Users().FindByID(ctx, userID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.IsActive {
		return model.User{}, ErrUserInactive
	}
	return u, nil
}

// SetActive enables or disables the account behind email.  Disabling does
// not revoke refresh tokens; every authentication path re-checks the flag.
func (s *Service) SetActive(ctx context.Context, email string, active bool) (model.User, error) {
	email = NormalizeEmail(email)
	now := s.now()
	var u model.User
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		u, err = tx.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if err := tx.Users().SetActive(ctx, u.ID, active, now); err != nil {
			return err
		}
		u.IsActive = active
		u.UpdatedAt = now
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("set active: %w", err)
	}
	s.log.Info("auth.user.set_active", "user_id", u.ID, "active", active)
	return u, nil
}

// Authenticate resolves a bearer access token to an active user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (model.User, error) {
	claims, err := s.codec.VerifyAccess(strings.TrimSpace(accessToken))
	if err != nil {
		return model.User{}, err
	}
	return s.Me(ctx, claims.Subject)
}

// ForgotPassword issues a reset token when the email belongs to a user and
// hands the raw token to the mailer in the background.  The caller
// always sees success unless the user lookup itself failed, which happens
// before existence is known.
func (s *Service) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { s.record("forgot_password", err) }()

	email = NormalizeEmail(email)
	if validateEmail(email) != nil {
		return nil
	}
	raw, err := utils.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now()
	var (
		found bool
		user  model.User
	)
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		u, err := tx.Users().FindByEmail(ctx, email)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}
		found, user = true, u
		return tx.ResetTokens().Store(ctx, model.PasswordResetToken{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			TokenHash: utils.HashToken(raw),
			ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
			CreatedAt: now,
		})
	})
	if err != nil {
		if found {
			s.log.Error("auth.forgot_password.store.fail", "user_id", user.ID, "err", err)
			return nil
		}
		return err
	}
	if found {
		s.deliverReset(user, raw)
	}
	return nil
}

func (s *Service) deliverReset(u model.User, raw string) {
	if s.mailer == nil {
		return
	}
	s.deliveries.Add(1)
	go func() {
		defer s.deliveries.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("auth.forgot_password.deliver.panic", "user_id", u.ID, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.MailTimeout)
		defer cancel()
		if err := s.mailer.SendPasswordReset(ctx, u.Email, raw); err != nil {
			s.log.Warn("auth.forgot_password.deliver.fail", "user_id", u.ID, "err", err)
		}
	}()
}

// WaitDeliveries blocks until background reset deliveries have returned.
func (s *Service) WaitDeliveries() { s.deliveries.Wait() }

// ResetPassword redeems a reset token once, replaces the password and
// revokes every active refresh token of the user.
func (s *Service) ResetPassword(ctx context.Context, raw, newPassword string) (err error) {
	defer func() { s.record("reset_password", err) }()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidOrExpiredResetToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	var revoked int64
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		row, err := tx.ResetTokens().FindRedeemableForUpdate(ctx, utils.HashToken(raw), now)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredResetToken
		}
		if err != nil {
			return fmt.Errorf("lookup reset token: %w", err)
		}
		if err := tx.Users().UpdatePassword(ctx, row.UserID, hash, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("update password: %w", err)
		}
		used, err := tx.ResetTokens().MarkUsed(ctx, row.ID, now)
		if err != nil {
			return fmt.Errorf("mark reset token used: %w", err)
		}
		if !used {
			return ErrInvalidOrExpiredResetToken
		}
		revoked, err = tx.RefreshTokens().RevokeAllForUser(ctx, row.UserID, now)
		if err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("auth.reset_password.ok", "revoked_sessions", revoked)
	return nil
}

func (s *Service) issue(ctx context.Context, tx repository.Tx, u model.User, now time.Time) (Session, error) {
	access, err := s.codec.IssueAccess(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.IssueRefresh(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := tx.RefreshTokens().Store(ctx, model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: utils.HashToken(refresh.Token),
		ExpiresAt: refresh.ExpiresAt,
		CreatedAt: now,
	}); err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}
	return Session{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
		User:             u,
	}, nil
}
