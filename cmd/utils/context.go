package utils

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/flashnews-app/flashnews-server/cmd/models"
	"gorm.io/gorm"
)

type contextKey string

const UserIDKey contextKey = "userID"

func GetUserIDFromContext(ctx context.Context) (uint, error) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	if !ok {
		return 0, errors.New("user ID not found in context")
	}
	return userID, nil
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
}

// TokenRevoked checks the jti against the revocation list.
func TokenRevoked(db *gorm.DB, jti string) bool {
	var revoked models.RevokedToken
	err := db.Where("jti = ?", jti).First(&revoked).Error
	return err == nil
}

// AuthMiddleware validates the bearer access token, rejects revoked or
// refresh tokens, and stores the user ID in the request context.
func AuthMiddleware(db *gorm.DB, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := BearerToken(r)
		if tokenString == "" {
			WriteError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if claims.IsRefreshToken() {
			WriteError(w, http.StatusUnauthorized, "Refresh token not allowed here")
			return
		}

		if TokenRevoked(db, claims.ID) {
			WriteError(w, http.StatusUnauthorized, "Token has been revoked")
			return
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "Invalid user ID in token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, uint(userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
