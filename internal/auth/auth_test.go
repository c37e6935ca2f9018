package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestPasswordLengthLimit(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// multi-byte runes count by bytes
	_, err = HashPassword(strings.Repeat("é", 37))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", 8*time.Hour)
	p := Principal{UserID: uuid.New(), ClinicID: uuid.New(), Role: "vet"}

	signed, exp, err := tokens.Issue(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), exp, time.Minute)

	got, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestTokenRejectsTamperingAndExpiry(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	signed, _, err := tokens.Issue(Principal{UserID: uuid.New(), ClinicID: uuid.New(), Role: "admin"})
	require.NoError(t, err)

	_, err = NewTokens("other-secret", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := NewTokens("test-secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		ClinicID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokens("test-secret", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	p := Principal{UserID: uuid.New(), ClinicID: uuid.New(), Role: "staff"}
	got, ok := PrincipalFrom(WithPrincipal(context.Background(), p))
	assert.True(t, ok)
	assert.Equal(t, p, got)
}
