package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/hyewonk/go-datatalk/internal/auth"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

// NewJWTMiddleware creates middleware to validate JWT from cookie.
func NewJWTMiddleware(secretKey string) func(http.Handler) http.Handler {
	secret := []byte(secretKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("auth_token")
			if err != nil {
				log.Printf("[AuthMiddleware] Missing auth_token cookie: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := auth.ValidateToken(cookie.Value, secret)
			if err != nil {
				log.Printf("[AuthMiddleware] Invalid token: %v", err)
				// Clear invalid cookie
				http.SetCookie(w, &http.Cookie{
					Name:     "auth_token",
					Value:    "",
					Path:     "/",
					Expires:  time.Unix(0, 0),
					HttpOnly: true,
					Secure:   true,
					SameSite: http.SameSiteLaxMode,
				})
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
