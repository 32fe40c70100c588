// Package auth issues and validates the optional JWT a client may
// present on the websocket query string. A valid token binds the socket
// to a real identity; everything else falls back to the anonymous
// default.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity claims carried by a collaboration token.
type Claims struct {
	UserID    string `json:"sub"`
	Name      string `json:"name"`
	UserColor string `json:"color"`
	jwt.RegisteredClaims
}

// GenerateToken signs a 24h token for the given identity.
func GenerateToken(secret, userID, name, color string) (string, error) {
	claims := Claims{
		UserID:    userID,
		Name:      name,
		UserColor: color,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "collabserver",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and verifies a token, returning its claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
