package security

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testSecret, time.Hour, nil)
	tok, err := iss.IssueAccessToken("user-123", "alice@example.com")
	require.NoError(t, err)

	claims, err := iss.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, time.Hour, fixedClock(issuedAt))
	tok, err := iss.IssueAccessToken("u1", "u1@example.com")
	require.NoError(t, err)

	later := NewIssuer(testSecret, time.Hour, fixedClock(issuedAt.Add(2*time.Hour)))
	_, err = later.VerifyAccessToken(tok)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestVerify_ExactExpiryIsRejected(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, time.Hour, fixedClock(issuedAt))
	tok, err := iss.IssueAccessToken("u1", "u1@example.com")
	require.NoError(t, err)

	atExpiry := NewIssuer(testSecret, time.Hour, fixedClock(issuedAt.Add(time.Hour)))
	_, err = atExpiry.VerifyAccessToken(tok)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewIssuer(testSecret, time.Hour, nil).IssueAccessToken("u2", "u2@example.com")
	require.NoError(t, err)

	_, err = NewIssuer(strings.Repeat("x", 32), time.Hour, nil).VerifyAccessToken(tok)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer(testSecret, time.Hour, nil).VerifyAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := AccessClaims{
		Email: "u@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewIssuer(testSecret, time.Hour, nil).VerifyAccessToken(tok)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc.def", "abc.def", false},
		{"missing", "", "", true},
		{"wrong scheme", "Basic abc", "", true},
		{"empty token", "Bearer   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := BearerToken(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingBearer)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIssueAccessToken_DistinctWithinSameSecond(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	iss := NewIssuer(strings.Repeat("k", 32), time.Hour, func() time.Time { return fixed })

	a, err := iss.IssueAccessToken("u1", "u1@example.com")
	require.NoError(t, err)
	b, err := iss.IssueAccessToken("u1", "u1@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
