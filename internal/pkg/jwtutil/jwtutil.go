package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims mirror the wire payload {"user":{"id":...}} plus the registered
// expiry claim. The library's signature check also rejects expired tokens,
// so callers see a single ErrInvalidToken for both cases.
type Claims struct {
	User UserClaim `json:"user"`
	jwt.RegisteredClaims
}

type UserClaim struct {
	ID string `json:"id"`
}

func GenerateToken(secret string, ttl time.Duration, userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		User: UserClaim{ID: userID},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.User.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
