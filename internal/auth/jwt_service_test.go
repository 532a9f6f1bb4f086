package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 10*time.Minute)

	token, err := svc.GenerateAccessToken(42)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, (10 * time.Minute).Seconds(), claims.TTL().Seconds(), 5)
}

func TestJWTService_UniqueTokenIDs(t *testing.T) {
	svc := NewJWTService("test-secret", 0)
	assert.Equal(t, DefaultAccessTokenExpiry, svc.Expiry())

	a, err := svc.GenerateAccessToken(1)
	require.NoError(t, err)
	b, err := svc.GenerateAccessToken(1)
	require.NoError(t, err)

	ca, _ := svc.ValidateToken(a)
	cb, _ := svc.ValidateToken(b)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestJWTService_RejectsForeignSecret(t *testing.T) {
	token, err := NewJWTService("one", time.Minute).GenerateAccessToken(1)
	require.NoError(t, err)

	_, err = NewJWTService("two", time.Minute).ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("s", time.Nanosecond)
	token, err := svc.GenerateAccessToken(1)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenStore_WithoutRedis(t *testing.T) {
	store := NewTokenStore(nil)
	ctx := context.Background()

	require.NoError(t, store.RevokeAccessToken(ctx, "jti", time.Minute))
	revoked, err := store.IsAccessTokenRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}
