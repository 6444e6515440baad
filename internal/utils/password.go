package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BcryptHasher is the password capability used by the auth service.
type BcryptHasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     string
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) { return HashPassword(plain, h.Cost) }

func (h *BcryptHasher) Verify(hash, plain string) bool { return VerifyPassword(hash, plain) }

// VerifyDummy spends the same work as a real Verify against a fixed hash.
// Login calls it when the email is unknown.
func (h *BcryptHasher) VerifyDummy(plain string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = HashPassword("dummy-password-for-timing", h.Cost)
	})
	_ = VerifyPassword(h.dummy, plain)
}
