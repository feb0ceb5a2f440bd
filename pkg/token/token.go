package token

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleType set member role
type RoleType string

const (
	// RoleAdmin apartment administrator
	RoleAdmin RoleType = "ADMIN"
	// RoleUser resident
	RoleUser RoleType = "USER"
)

// Claims structure for custom claims in JWT
type Claims struct {
	UserID      string   `json:"user_id"`
	Role        RoleType `json:"role"`
	ApartmentID string   `json:"apartment_id"`
	jwt.RegisteredClaims
}

var (
	// ErrInvalidToken token can not be verified
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingClaims token verified but identity incomplete
	ErrMissingClaims = errors.New("token missing identity claims")
)

var (
	mu              sync.RWMutex
	jwtSecret       = []byte("secure_secret_key")
	tokenExpiration = 60 * time.Minute
)

// SetSecret replace the signing secret, call once at start up
func SetSecret(secret string) {
	if secret == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	jwtSecret = []byte(secret)
}

func secret() []byte {
	mu.RLock()
	defer mu.RUnlock()
	return jwtSecret
}

// GenerateJWT generates a JWT token
func GenerateJWT(userID string, role RoleType, apartmentID, issuer string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:      userID,
		Role:        role,
		ApartmentID: apartmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret())
}

// ParseJWT parses a JWT and extracts the Claims. Expired tokens, foreign signing
// methods and tokens without a complete identity are rejected.
func ParseJWT(tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret(), nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.ApartmentID == "" {
		return nil, ErrMissingClaims
	}
	if claims.Role != RoleAdmin && claims.Role != RoleUser {
		return nil, ErrMissingClaims
	}
	return claims, nil
}
