package utils

import (
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestCodec(t *testing.T, clock *fakeClock) *TokenCodec {
    t.Helper()
    codec, err := NewTokenCodec("access-secret", "refresh-secret", 15*time.Minute, 14*24*time.Hour, clock.Now)
    require.NoError(t, err)
    return codec
}

func TestTokenCodecRoundTrip(t *testing.T) {
    clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
    codec := newTestCodec(t, clock)

    access, err := codec.IssueAccess("user-1")
    require.NoError(t, err)
    require.Equal(t, clock.t.Add(15*time.Minute), access.ExpiresAt)
    require.NotEmpty(t, access.ID)

    claims, err := codec.VerifyAccess(access.Token)
    require.NoError(t, err)
    require.Equal(t, "user-1", claims.Subject)
    require.Equal(t, TokenTypeAccess, claims.Type)
    require.Equal(t, access.ID, claims.ID)

    refresh, err := codec.IssueRefresh("user-1")
    require.NoError(t, err)
    rc, err := codec.VerifyRefresh(refresh.Token)
    require.NoError(t, err)
    require.Equal(t, "user-1", rc.Subject)
    require.Equal(t, 14*24*time.Hour, codec.RefreshTTL())
}

func TestTokenCodecDistinctTokensForSameSubject(t *testing.T) {
    clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
    codec := newTestCodec(t, clock)

    a, err := codec.IssueRefresh("user-1")
    require.NoError(t, err)
    b, err := codec.IssueRefresh("user-1")
    require.NoError(t, err)
    require.NotEqual(t, a.Token, b.Token)
    require.NotEqual(t, a.ID, b.ID)
}

func TestTokenCodecRejectsExpired(t *testing.T) {
    clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
    codec := newTestCodec(t, clock)

    access, err := codec.IssueAccess("user-1")
    require.NoError(t, err)

    clock.t = clock.t.Add(16 * time.Minute)
    _, err = codec.VerifyAccess(access.Token)
    require.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenCodecRejectsWrongType(t *testing.T) {
    clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
    codec := newTestCodec(t, clock)

    access, err := codec.IssueAccess("user-1")
    require.NoError(t, err)
    refresh, err := codec.IssueRefresh("user-1")
    require.NoError(t, err)

    // Secrets differ, so a swapped token fails on the signature first.
    _, err = codec.VerifyRefresh(access.Token)
    require.ErrorIs(t, err, ErrInvalidToken)
    _, err = codec.VerifyAccess(refresh.Token)
    require.ErrorIs(t, err, ErrInvalidToken)

    // Same secret but wrong type claim.
    shared := &TokenCodec{
        accessSecret:  []byte("same"),
        refreshSecret: []byte("same"),
        accessTTL:     time.Minute,
        refreshTTL:    time.Hour,
        now:           clock.Now,
    }
    tok, err := shared.IssueRefresh("user-1")
    require.NoError(t, err)
    _, err = shared.VerifyAccess(tok.Token)
    require.ErrorIs(t, err, ErrWrongTokenType)
}

func TestTokenCodecRejectsTampered(t *testing.T) {
    clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
    codec := newTestCodec(t, clock)

    access, err := codec.IssueAccess("user-1")
    require.NoError(t, err)

    parts := strings.Split(access.Token, ".")
    require.Len(t, parts, 3)
    sig := []byte(parts[2])
    if sig[0] == 'A' {
        sig[0] = 'B'
    } else {
        sig[0] = 'A'
    }
    tampered := parts[0] + "." + parts[1] + "." + string(sig)

    _, err = codec.VerifyAccess(tampered)
    require.ErrorIs(t, err, ErrInvalidToken)
    _, err = codec.VerifyAccess("not-a-jwt")
    require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenCodecValidatesSecrets(t *testing.T) {
    _, err := NewTokenCodec("", "x", time.Minute, time.Hour, nil)
    require.Error(t, err)
    _, err = NewTokenCodec("same", "same", time.Minute, time.Hour, nil)
    require.Error(t, err)
}

func TestOpaqueTokenAndHash(t *testing.T) {
    a, err := NewOpaqueToken()
    require.NoError(t, err)
    b, err := NewOpaqueToken()
    require.NoError(t, err)
    require.NotEqual(t, a, b)
    require.Len(t, a, 43)

    require.Equal(t, HashToken(a), HashToken(a))
    require.NotEqual(t, HashToken(a), HashToken(b))
    require.Len(t, HashToken(a), 64)
}

func TestBcryptHasher(t *testing.T) {
    h := NewBcryptHasher(4)
    hash, err := h.Hash("correct horse")
    require.NoError(t, err)
    require.True(t, h.Verify(hash, "correct horse"))
    require.False(t, h.Verify(hash, "wrong horse"))
    h.VerifyDummy("anything")

    again, err := h.Hash("correct horse")
    require.NoError(t, err)
    require.NotEqual(t, hash, again)
}
