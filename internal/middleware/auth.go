package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/foodkeeper/foodkeeper/internal/auth"
	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/request"
)

// Auth creates authentication middleware that validates session tokens
func Auth(tokens *auth.TokenIssuer, users database.UserRepositoryInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			ctx := r.Context()
			email, err := tokens.Verify(parts[1])
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := users.GetByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					// Token subject no longer exists
					respondError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				log.Printf("Database error while fetching user: %v", err)
				respondError(w, http.StatusInternalServerError, "Database error")
				return
			}

			if !user.Enabled {
				respondError(w, http.StatusUnauthorized, "Account disabled")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
