package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finanzas-server/src/models"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	UsernameKey   contextKey = "username"
	SuperAdminKey contextKey = "super_admin"
	requestIDKey  contextKey = "request_id"
)

// UserIDFromContext returns "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

func IsSuperAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(SuperAdminKey).(bool)
	return admin
}

// NewToken signs an HS256 token carrying the user's id, name and admin flag.
func NewToken(secret []byte, ttl time.Duration, userID, username string, superAdmin bool) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":     userID,
		"username":    username,
		"super_admin": superAdmin,
		"exp":         time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// ParseTokenFromRequest extracts and validates the bearer token. Browsers
// cannot set headers on websocket upgrades, so a token query parameter is
// accepted as well.
func ParseTokenFromRequest(r *http.Request, secret []byte) (jwt.MapClaims, error) {
	tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if id, _ := claims["user_id"].(string); id == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func JWTAuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := ParseTokenFromRequest(r, secret)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			userID, _ := claims["user_id"].(string)
			username, _ := claims["username"].(string)
			superAdmin, _ := claims["super_admin"].(bool)

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, UsernameKey, username)
			ctx = context.WithValue(ctx, SuperAdminKey, superAdmin)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SuperAdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsSuperAdmin(r.Context()) {
			WriteError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns ctx as JWTAuthMiddleware would leave it for u.
func WithUser(ctx context.Context, u models.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, u.ID)
	ctx = context.WithValue(ctx, UsernameKey, u.Username)
	return context.WithValue(ctx, SuperAdminKey, u.SuperAdmin)
}
