package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)

	access, err := m.GenerateToken("u1", "a@b.c", "user")
	require.NoError(t, err)
	claims, err := m.VerifyToken(access)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, TypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	refresh, err := m.GenerateRefreshToken("u1", "a@b.c", "user")
	require.NoError(t, err)
	rclaims, err := m.VerifyToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, rclaims.TokenType)
}

func TestJWTManager_RejectsForeignSecret(t *testing.T) {
	tok, err := NewJWTManager("one", 1, 1).GenerateToken("u1", "a@b.c", "user")
	require.NoError(t, err)

	_, err = NewJWTManager("two", 1, 1).VerifyToken(tok)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", 0, 0)
	tok, err := m.GenerateToken("u1", "a@b.c", "user")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = m.VerifyToken(tok)
	assert.Error(t, err)
}
