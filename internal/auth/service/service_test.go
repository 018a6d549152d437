package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/enrollpay/internal/auth/domain"
	"github.com/smallbiznis/enrollpay/internal/clock"
	"github.com/smallbiznis/enrollpay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T, secret string, clk clock.Clock) domain.TokenService {
	t.Helper()
	return New(Params{
		Cfg:   config.Config{AuthJWTSecret: secret},
		Log:   zaptest.NewLogger(t),
		Clock: clk,
	})
}

func TestIssueAndParse(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, time.November, 2, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, "jwt-secret", clk)

	token, err := svc.Issue(domain.Principal{UserID: 1234567890, Role: "Staff"}, time.Hour)
	require.NoError(t, err)

	principal, err := svc.Parse(token)
	require.NoError(t, err)
	assert.EqualValues(t, 1234567890, principal.UserID)
	assert.Equal(t, domain.RoleStaff, principal.Role)
	assert.True(t, principal.IsStaff())
	assert.Equal(t, "user:1234567890", principal.Subject())
}

func TestParseRejectsExpiredToken(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, time.November, 2, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, "jwt-secret", clk)

	token, err := svc.Issue(domain.Principal{UserID: 42, Role: domain.RoleStudent}, time.Minute)
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	_, err = svc.Parse(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestParseRejections(t *testing.T) {
	now := time.Date(2026, time.November, 2, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	svc := newTestService(t, "jwt-secret", clk)

	sign := func(method jwt.SigningMethod, key any, c jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(method, c).SignedString(key)
		require.NoError(t, err)
		return token
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{"sub": "42", "role": "student", "exp": now.Add(time.Hour).Unix()}
	}

	noExpiry := valid()
	delete(noExpiry, "exp")
	badRole := valid()
	badRole["role"] = "admin"
	badSubject := valid()
	badSubject["sub"] = "alice"

	cases := map[string]string{
		"wrong secret":   sign(jwt.SigningMethodHS256, []byte("other"), valid()),
		"wrong method":   sign(jwt.SigningMethodHS512, []byte("jwt-secret"), valid()),
		"unsigned":       sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid()),
		"no expiry":      sign(jwt.SigningMethodHS256, []byte("jwt-secret"), noExpiry),
		"unknown role":   sign(jwt.SigningMethodHS256, []byte("jwt-secret"), badRole),
		"non id subject": sign(jwt.SigningMethodHS256, []byte("jwt-secret"), badSubject),
		"garbage":        "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Parse(token)
			assert.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}

	_, err := svc.Parse("  ")
	assert.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestMissingSecretRejectsEverything(t *testing.T) {
	svc := newTestService(t, "", clock.NewFakeClock(time.Now()))

	_, err := svc.Issue(domain.Principal{UserID: 1, Role: domain.RoleStudent}, time.Hour)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = svc.Parse("a.b.c")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
