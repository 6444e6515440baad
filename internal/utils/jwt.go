package utils // package utils provides helpers for token signing, hashing and passwords

import (
    "crypto/rand" // entropy source for ULID token ids
    "errors"      // sentinel verification errors
    "time"        // expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
    "github.com/oklog/ulid/v2"     // sortable unique ids for the jti claim
)

// TokenType distinguishes the two token classes signed by the codec.
type TokenType string

const (
    TokenTypeAccess  TokenType = "access"
    TokenTypeRefresh TokenType = "refresh"
)

// Verification errors.  Callers surface all three as one "invalid session"
// class; they stay distinct for logs.
var (
    ErrInvalidToken   = errors.New("invalid token")
    ErrExpiredToken   = errors.New("token expired")
    ErrWrongTokenType = errors.New("wrong token type")
)

// Claims is the verified-claims shape shared by both token classes:
// sub, exp, iat and jti from the registered set plus the token type.
type Claims struct {
    Type TokenType `json:"type"`
    jwt.RegisteredClaims
}

// AccessClaims are the claims of a verified short-lived access token.
type AccessClaims struct{ Claims }

// RefreshClaims are the claims of a verified refresh token.
type RefreshClaims struct{ Claims }

// IssuedToken is a freshly signed token along with its id and expiry.
type IssuedToken struct {
    Token     string    // the serialized JWT string
    ID        string    // jti claim
    ExpiresAt time.Time // the UTC expiration time
}

// TokenCodec signs and verifies access and refresh tokens.  Each class has
// its own secret and TTL so that one leaked secret cannot forge the other
// class.  The codec keeps no state beyond its configuration.
type TokenCodec struct {
    accessSecret  []byte
    refreshSecret []byte
    accessTTL     time.Duration
    refreshTTL    time.Duration
    now           func() time.Time
}

// NewTokenCodec builds a codec.  now may be nil, in which case time.Now is
// used.
func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, now func() time.Time) (*TokenCodec, error) {
    if accessSecret == "" || refreshSecret == "" {
        return nil, errors.New("token codec: secrets must not be empty")
    }
    if accessSecret == refreshSecret {
        return nil, errors.New("token codec: access and refresh secrets must differ")
    }
    if now == nil {
        now = time.Now
    }
    return &TokenCodec{
        accessSecret:  []byte(accessSecret),
        refreshSecret: []byte(refreshSecret),
        accessTTL:     accessTTL,
        refreshTTL:    refreshTTL,
        now:           now,
    }, nil
}

// RefreshTTL is the lifetime of refresh tokens, also used as the cookie max-age.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs an access token for subject.
func (c *TokenCodec) IssueAccess(subject string) (IssuedToken, error) {
    return c.issue(subject, TokenTypeAccess, c.accessSecret, c.accessTTL)
}

// IssueRefresh signs a refresh token for subject with the refresh secret.
func (c *TokenCodec) IssueRefresh(subject string) (IssuedToken, error) {
    return c.issue(subject, TokenTypeRefresh, c.refreshSecret, c.refreshTTL)
}

func (c *TokenCodec) issue(subject string, typ TokenType, secret []byte, ttl time.Duration) (IssuedToken, error) {
    now := c.now().UTC()
    exp := now.Add(ttl)
    // ULIDs carry the issue time, which keeps jti values sortable in audit logs.
    id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
    if err != nil {
        return IssuedToken{}, err
    }
    claims := Claims{
        Type: typ,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   subject,
            ExpiresAt: jwt.NewNumericDate(exp),
            IssuedAt:  jwt.NewNumericDate(now),
            ID:        id.String(),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
    if err != nil {
        return IssuedToken{}, err
    }
    return IssuedToken{Token: signed, ID: id.String(), ExpiresAt: exp}, nil
}

// VerifyAccess validates signature, expiry and type of an access token.
func (c *TokenCodec) VerifyAccess(token string) (AccessClaims, error) {
    cl, err := c.verify(token, TokenTypeAccess, c.accessSecret)
    if err != nil {
        return AccessClaims{}, err
    }
    return AccessClaims{Claims: cl}, nil
}

// VerifyRefresh validates signature, expiry and type of a refresh token.
func (c *TokenCodec) VerifyRefresh(token string) (RefreshClaims, error) {
    cl, err := c.verify(token, TokenTypeRefresh, c.refreshSecret)
    if err != nil {
        return RefreshClaims{}, err
    }
    return RefreshClaims{Claims: cl}, nil
}

func (c *TokenCodec) verify(token string, want TokenType, secret []byte) (Claims, error) {
    var cl Claims
    _, err := jwt.ParseWithClaims(token, &cl, func(t *jwt.Token) (any, error) {
        return secret, nil
    },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(c.now),
    )
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return Claims{}, ErrExpiredToken
        }
        return Claims{}, ErrInvalidToken
    }
    if cl.Type != want {
        return Claims{}, ErrWrongTokenType
    }
    if cl.Subject == "" {
        return Claims{}, ErrInvalidToken
    }
    return cl, nil
}
