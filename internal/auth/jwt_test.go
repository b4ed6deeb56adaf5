package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueValidate(t *testing.T) {
	manager := NewTokenManager("secret", 24*time.Hour, "issuer")
	token, err := manager.Issue(42, "organizer")
	require.NoError(t, err)

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "organizer", claims.Role)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "issuer", claims.Issuer)
}

func TestTokenIssueInvalidUser(t *testing.T) {
	manager := NewTokenManager("secret", time.Hour, "issuer")
	if _, err := manager.Issue(0, "organizer"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestTokenValidateMissing(t *testing.T) {
	manager := NewTokenManager("secret", time.Hour, "issuer")
	if _, err := manager.Validate("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestTokenExpiryWindow(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	clock := func() time.Time { return now }
	manager := NewTokenManager("secret", 24*time.Hour, "issuer", WithClock(clock))

	token, err := manager.Issue(7, "attendee")
	require.NoError(t, err)

	now = issuedAt.Add(23*time.Hour + 59*time.Minute)
	claims, err := manager.Validate(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)

	now = issuedAt.Add(24*time.Hour + time.Minute)
	_, err = manager.Validate(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenValidateWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour, "issuer").Issue(1, "attendee")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour, "issuer").Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenValidateMalformed(t *testing.T) {
	manager := NewTokenManager("secret", time.Hour, "issuer")
	_, err := manager.Validate("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenValidateRejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		UserID: 1,
		Role:   "organizer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour, "issuer").Validate(unsigned)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenValidateRequiresExpiry(t *testing.T) {
	claims := &Claims{UserID: 1, Role: "organizer"}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour, "issuer").Validate(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromHeader(t *testing.T) {
	if _, err := TokenFromHeader(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if _, err := TokenFromHeader("Bearer"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if token, err := TokenFromHeader("Bearer abc"); err != nil || token != "abc" {
		t.Fatalf("expected token, got %s err %v", token, err)
	}
	if token, err := TokenFromHeader("abc"); err != nil || token != "abc" {
		t.Fatalf("expected bare token, got %s err %v", token, err)
	}
	if _, err := TokenFromHeader("Basic a b"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}
