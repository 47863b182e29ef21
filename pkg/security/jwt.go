package security

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrMissingBearer         = errors.New("missing bearer token")
)

// AccessClaims is the payload of an access token: sub, email, iat, exp.
// jti makes two tokens minted in the same second distinct.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() string { return c.Subject }

// Issuer mints and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: now}
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

func (i *Issuer) IssueAccessToken(userID, email string) (string, error) {
	now := i.now()
	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *Issuer) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidOrExpiredToken
	}
	// exp must lie strictly in the future
	if !claims.ExpiresAt.After(i.now()) || claims.Subject == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", ErrMissingBearer
	}
	tok := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if tok == "" {
		return "", ErrMissingBearer
	}
	return tok, nil
}
