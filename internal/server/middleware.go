package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"contract-review/internal/db"
	"contract-review/internal/helper"

	"github.com/rs/zerolog/log"
)

type contextKey string

const profileKey contextKey = "profile"

// ProfileFromContext returns the authenticated profile set by APIKeyAuth.
func ProfileFromContext(ctx context.Context) *db.Profile {
	profile, _ := ctx.Value(profileKey).(*db.Profile)
	return profile
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one line per request with a generated request id.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, _ := helper.GenerateUUID()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

// CORS allows the configured origins; an empty list allows any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if len(allowed) == 0 {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyAuth validates the X-API-Key header against the account store and
// rejects requests from accounts without remaining credits.
func APIKeyAuth(accounts AccountStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := strings.Trim(r.Header.Get("X-API-Key"), "\"")
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "API Key is required")
				return
			}

			profile, err := accounts.Verify(r.Context(), apiKey)
			switch {
			case errors.Is(err, db.ErrInvalidAPIKey):
				writeError(w, http.StatusUnauthorized, "Invalid API Key")
				return
			case errors.Is(err, db.ErrNoCredits):
				writeError(w, http.StatusUnauthorized, "No credits remaining")
				return
			case err != nil:
				log.Error().Err(err).Msg("API key verification failed")
				writeError(w, http.StatusInternalServerError, "Database error: "+err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), profileKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
