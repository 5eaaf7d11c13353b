package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-membership/internal/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "0123456789abcdef0123456789abcdef",
		Issuer:            "storefront",
		AccessTokenExpiry: time.Hour,
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := NewJWTManager(testJWTConfig())

	token, err := manager.GenerateAccessToken("cust-1", "sara@example.com", false)
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", claims.CustomerID)
	assert.Equal(t, "sara@example.com", claims.Email)
	assert.False(t, claims.Staff)
	assert.Equal(t, "customer:cust-1", claims.Subject)
}

func TestJWTManager_Rejects(t *testing.T) {
	cfg := testJWTConfig()
	manager := NewJWTManager(cfg)

	other := cfg
	other.Secret = "ffffffffffffffffffffffffffffffff"
	forged, err := NewJWTManager(other).GenerateAccessToken("cust-1", "", false)
	require.NoError(t, err)

	wrongIssuer := cfg
	wrongIssuer.Issuer = "someone-else"
	foreign, err := NewJWTManager(wrongIssuer).GenerateAccessToken("cust-1", "", false)
	require.NoError(t, err)

	expiredCfg := cfg
	expiredCfg.AccessTokenExpiry = -time.Minute
	expired, err := NewJWTManager(expiredCfg).GenerateAccessToken("cust-1", "", false)
	require.NoError(t, err)

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		CustomerID:       "cust-1",
		TokenType:        "refresh",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer},
	}).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": forged,
		"wrong issuer": foreign,
		"expired":      expired,
		"refresh type": refresh,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := manager.ValidateAccessToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader("Bearer "))
}
