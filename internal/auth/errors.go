package auth

import (
	"errors"

	"github.com/iliyamo/active-breaks/internal/utils"
)

// Terminal, user-visible failures of the session lifecycle.  None of them is
// retried internally.
var (
	ErrInvalidInput               = errors.New("invalid input")
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrUserInactive               = errors.New("user inactive")
	ErrUserNotFound               = errors.New("user not found")
	ErrEmailTaken                 = errors.New("email already registered")
	ErrNoSession                  = errors.New("no session")
	ErrSessionNotActive           = errors.New("session not active")
	ErrInvalidOrExpiredResetToken = errors.New("invalid or expired reset token")
)

// IsInvalidSession reports whether err belongs to the "invalid session" class
// that clients see as one generic 401.
func IsInvalidSession(err error) bool {
	return errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, utils.ErrInvalidToken) ||
		errors.Is(err, utils.ErrExpiredToken) ||
		errors.Is(err, utils.ErrWrongTokenType)
}

// outcome labels err for the auth_operations_total counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUserInactive):
		return "user_inactive"
	case errors.Is(err, ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrInvalidOrExpiredResetToken):
		return "invalid_reset_token"
	case IsInvalidSession(err):
		return "invalid_session"
	default:
		return "error"
	}
}
