package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	tok, err := GenerateJWT("resident-1", RoleUser, "apt-1", "test")
	require.NoError(t, err)

	claims, err := ParseJWT("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "resident-1", claims.UserID)
	assert.Equal(t, RoleUser, claims.Role)
	assert.Equal(t, "apt-1", claims.ApartmentID)
}

func TestParseJWT_Rejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u", Role: RoleUser, ApartmentID: "a",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	expiredStr, err := expired.SignedString(secret())
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u", Role: RoleUser, ApartmentID: "a"})
	foreignStr, err := foreign.SignedString([]byte("other secret"))
	require.NoError(t, err)

	noApartment, err := GenerateJWT("u", RoleAdmin, "", "test")
	require.NoError(t, err)

	badRole, err := GenerateJWT("u", RoleType("SUPER"), "a", "test")
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"expired":      expiredStr,
		"wrong secret": foreignStr,
		"no apartment": noApartment,
		"unknown role": badRole,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJWT(tok)
			assert.Error(t, err)
		})
	}
}
