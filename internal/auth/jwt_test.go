package auth

import (
	"testing"
	"time"

	"salun/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Hour, Issuer: "salun"}

	tok, err := GenerateAccessToken(cfg, 42, "9800011111", "user")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Hour}
	other := &config.JWTConfig{AccessSecret: "other", AccessExpiry: time.Hour}
	expired := &config.JWTConfig{AccessSecret: "secret", AccessExpiry: -time.Minute}

	wrongKey, err := GenerateAccessToken(other, 1, "1", "admin")
	require.NoError(t, err)
	old, err := GenerateAccessToken(expired, 1, "1", "admin")
	require.NoError(t, err)

	for name, tok := range map[string]string{"garbage": "not.a.token", "wrong key": wrongKey, "expired": old} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(cfg, tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
