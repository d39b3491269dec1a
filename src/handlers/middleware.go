package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
	"github.com/username/datadissem/src/security"
	"github.com/username/datadissem/src/services"
	"github.com/username/datadissem/src/utils"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	apiKeyContextKey    contextKey = "apiKey"
)

// APIKeyHeader carries the caller's key on data API requests.
const APIKeyHeader = "x-api-key"

// ContextualLoggerMiddleware creates a logger with a request ID for each request.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware rejects requests beyond rps (with burst) across the router.
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.FromContext(r.Context()).Warn("Rate limit exceeded", "path", r.URL.Path)
				utils.SendJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyMiddleware admits requests whose x-api-key header names a registered key.
func APIKeyMiddleware(registry services.APIKeyRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxLogger := logger.FromContext(r.Context())

			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" {
				ctxLogger.Debug("APIKeyMiddleware: API key header missing", "path", r.URL.Path)
				utils.SendJSONErrorCode(w, "API key required", utils.CodeUnauthorized, http.StatusUnauthorized)
				return
			}

			ok, err := registry.Validate(key)
			if err != nil {
				ctxLogger.Error("APIKeyMiddleware: key lookup failed", "error", err)
				utils.SendJSONError(w, "Failed to validate API key", http.StatusInternalServerError)
				return
			}
			if !ok {
				ctxLogger.Warn("APIKeyMiddleware: unknown API key", "path", r.URL.Path, "apiKey", models.MaskKey(key))
				utils.SendJSONErrorCode(w, "Invalid API key", utils.CodeUnauthorized, http.StatusUnauthorized)
				return
			}

			enrichedLogger := ctxLogger.With(slog.String("apiKey", models.MaskKey(key)))
			ctx := logger.ToContext(r.Context(), enrichedLogger)
			ctx = context.WithValue(ctx, apiKeyContextKey, key)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKeyFromContext returns the validated key set by APIKeyMiddleware.
func GetAPIKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(apiKeyContextKey).(string)
	return key, ok
}

// AdminMiddleware requires an admin bearer token.
func AdminMiddleware(tokens *security.AdminTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxLogger := logger.FromContext(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				ctxLogger.Debug("AdminMiddleware: Authorization header missing", "path", r.URL.Path)
				utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if tokenString == "" {
				utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
				return
			}

			if err := tokens.Validate(tokenString); err != nil {
				ctxLogger.Warn("AdminMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := logger.ToContext(r.Context(), ctxLogger.With(slog.String("role", security.AdminSubject)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
