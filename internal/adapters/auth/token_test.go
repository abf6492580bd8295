package auth

import (
	"testing"
	"time"

	"committeesync/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTCodecRoundTrip(t *testing.T) {
	codec := NewJWTCodec("test-secret")
	user := domain.UserContext{
		UserID:        "user-123",
		Email:         "u@example.com",
		RegistryToken: "imat-tok",
	}

	token, err := codec.Issue(user, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", got.UserID)
	assert.Equal(t, "u@example.com", got.Email)
	assert.Equal(t, "imat-tok", got.RegistryToken)
	assert.True(t, got.Valid())
}

func TestJWTCodecRejectsBadTokens(t *testing.T) {
	codec := NewJWTCodec("test-secret")

	_, err := codec.Verify("not-a-token")
	assert.ErrorIs(t, err, domain.ErrAuth)

	other := NewJWTCodec("other-secret")
	token, err := other.Issue(domain.UserContext{UserID: "user-123"}, time.Hour)
	require.NoError(t, err)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestJWTCodecRejectsExpired(t *testing.T) {
	codec := NewJWTCodec("test-secret")
	token, err := codec.Issue(domain.UserContext{UserID: "user-123"}, -time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestJWTCodecRejectsWrongAlgorithm(t *testing.T) {
	codec := NewJWTCodec("test-secret")
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-123"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, domain.ErrAuth)
}
