package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *TokenManager {
	return NewTokenManager(&Config{JWTSecret: "test-secret", TokenTTLHours: 1})
}

func TestGenerateAndParse(t *testing.T) {
	m := newTestManager()

	token, err := m.Generate(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestParseWrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewTokenManager(&Config{JWTSecret: "another-secret", TokenTTLHours: 1})

	token, err := m.Generate(42, "alice")
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestParseExpired(t *testing.T) {
	m := newTestManager()
	m.ttl = -time.Hour

	token, err := m.Generate(42, "alice")
	require.NoError(t, err)

	_, err = m.Parse(token)
	require.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	m := newTestManager()
	_, err := m.Parse("not.a.token")
	require.Error(t, err)
}

func TestVerifyToken(t *testing.T) {
	Init(&Config{JWTSecret: "test-secret", TokenTTLHours: 1})

	token, err := GenerateToken(7, "bob")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/v1/quota", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	userID, err := VerifyToken(r)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestVerifyTokenMissingHeader(t *testing.T) {
	Init(&Config{JWTSecret: "test-secret", TokenTTLHours: 1})

	r := httptest.NewRequest("GET", "/v1/quota", nil)
	_, err := VerifyToken(r)
	require.Error(t, err)
}

func TestVerifyTokenWrongScheme(t *testing.T) {
	Init(&Config{JWTSecret: "test-secret", TokenTTLHours: 1})

	r := httptest.NewRequest("GET", "/v1/quota", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	_, err := VerifyToken(r)
	require.Error(t, err)
}
