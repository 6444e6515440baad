package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordRunes = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
	maxEmailLen      = 320
)

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLen {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordRunes || len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be %d to %d bytes", ErrInvalidInput, minPasswordRunes, maxPasswordBytes)
	}
	return nil
}
