package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"gorm.io/gorm"
)

// Middleware creates an HTTP middleware that extracts and injects the
// authenticated user context. This middleware:
// 1. Extracts the Authorization header
// 2. Parses the bearer token to get the user id
// 3. Looks up the user and their roles from the database
// 4. Injects the user context into the request
//
// If any step fails (missing token, invalid token, user not found), the
// request proceeds without a user context. Handlers should check for context
// availability.
//
// This design allows:
// - Public endpoints (no auth required)
// - Protected endpoints (check for context)
// - Optional auth endpoints (use context if available)
func Middleware(authService *AuthService, tokenExtractor *TokenExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")

			// If no Authorization header, continue without user context
			if authHeader == "" {
				slog.Debug("no authorization header provided")
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokenExtractor.ExtractUserIDFromHeader(authHeader)
			if err != nil {
				slog.Warn("failed to extract user ID from token",
					"error", err,
					"auth_header_length", len(authHeader),
				)
				next.ServeHTTP(w, r)
				return
			}

			userCtx, err := authService.GetUserContext(r.Context(), userID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					slog.Info("user not found for token", "user_id", userID)
				} else {
					slog.Warn("failed to load user context from database",
						"user_id", userID,
						"error", err,
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, userCtx)
			r = r.WithContext(ctx)

			slog.Debug("user context injected successfully",
				"user_id", userID,
			)

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns a middleware that requires authentication.
// If no user context is found, returns 401 Unauthorized.
// This middleware should be applied to protected endpoints.
//
// Usage:
//
//	mux.Handle("POST /api/approvals", auth.RequireAuth(authService, tokenExtractor)(handler))
func RequireAuth(authService *AuthService, tokenExtractor *TokenExtractor) func(http.Handler) http.Handler {
	// Create the auth middleware once, not on every request
	authMiddleware := Middleware(authService, tokenExtractor)

	return func(next http.Handler) http.Handler {
		return authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx := GetUserContext(r.Context())
			if userCtx == nil {
				slog.Warn("authentication required but not provided",
					"method", r.Method,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"UNAUTHORIZED","message":"認証が必要です"}`))
				return
			}

			next.ServeHTTP(w, r)
		}))
	}
}
