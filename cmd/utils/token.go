package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour

	refreshTokenType = "refresh"
)

var ErrNotRefreshToken = errors.New("token is not a refresh token")

// TokenClaims carries the identity claim (Subject, user ID as string), a jti
// for revocation, and the token type distinguishing refresh tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type,omitempty"`
}

func jwtSecret() []byte {
	return []byte(os.Getenv("SECRET_KEY"))
}

// GenerateAccessToken mints a short-lived signed access token for userID.
func GenerateAccessToken(userID uint) (string, error) {
	return generateToken(userID, AccessTokenTTL, "")
}

// GenerateRefreshToken mints a longer-lived token that can only be exchanged
// for a new access token, never used on protected routes directly.
func GenerateRefreshToken(userID uint) (string, error) {
	return generateToken(userID, RefreshTokenTTL, refreshTokenType)
}

func generateToken(userID uint, ttl time.Duration, tokenType string) (string, error) {
	now := time.Now().UTC()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// ParseToken validates the signature and expiry of a token string and returns
// its claims. Revocation is checked separately against the database.
func ParseToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// IsRefreshToken reports whether claims belong to a refresh token.
func (c *TokenClaims) IsRefreshToken() bool {
	return c.TokenType == refreshTokenType
}
