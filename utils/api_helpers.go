package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RespondJSON sends a JSON response with the given status code and payload.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// RespondError sends a JSON error response. 5xx answers are logged as errors, the
// rest at debug level.
func RespondError(w http.ResponseWriter, logger *zap.Logger, message string, status int) {
	if logger != nil {
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", zap.Int("status", status), zap.String("error", message))
		} else {
			logger.Debug("Request rejected", zap.Int("status", status), zap.String("error", message))
		}
	}
	RespondJSON(w, status, map[string]string{"error": message})
}

// RequestLogger logs method, path, status and duration of each request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
