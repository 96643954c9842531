package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "user_id"

var errNoUser = errors.New("user id not found in context")

// AuthMiddleware validates the bearer token and stores its user ID in the context.
func AuthMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tokenString == "" {
				utils.RespondError(w, logger, "Authorization header required", http.StatusUnauthorized)
				return
			}
			userID, err := utils.ValidateToken(tokenString)
			if err != nil {
				utils.RespondError(w, logger, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// GetUserIDFromContext returns the user set by AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", errNoUser
	}
	return userID, nil
}
