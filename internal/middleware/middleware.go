// Package middleware provides HTTP middleware for the dashboard server.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/auth"
	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
	"github.com/emanueledman/fixa-admin/internal/services"
)

// StructuredLogger returns a middleware that logs HTTP requests with zap
func StructuredLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.statusCode),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("uid", auth.UIDFromContext(r.Context())),
			)
		})
	}
}

// SecurityHeaders sets conservative response headers on every reply.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

// Locale negotiates the response language from ?lang= or Accept-Language.
func Locale(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := i18n.Negotiate(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
			if r.URL.Query().Get("lang") == "" && r.Header.Get("Accept-Language") == "" && fallback != "" {
				locale = fallback
			}
			w.Header().Set("Content-Language", locale)
			next.ServeHTTP(w, r.WithContext(i18n.WithLocale(r.Context(), locale)))
		})
	}
}

// TokenValidator checks a session token and returns its uid.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// RequireAuth validates session tokens for protected routes. SSE clients that
// cannot set headers may pass the token as ?access_token=.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if tokenStr == "" {
				tokenStr = r.URL.Query().Get("access_token")
			}
			if tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "Authorization required")
				return
			}

			uid, err := tokens.Validate(tokenStr)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUID(r.Context(), uid)))
		})
	}
}

// ProfileLookup loads a user profile by uid.
type ProfileLookup interface {
	Get(ctx context.Context, uid string) (models.Responsible, error)
}

// RequireResponsible re-reads the profile on every request and rejects users
// whose isResponsible flag is not set or who have no profile with 403. A
// failed lookup is a 503. Must run after RequireAuth.
func RequireResponsible(profiles ProfileLookup, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := auth.UIDFromContext(r.Context())
			locale := i18n.FromContext(r.Context())
			if uid == "" {
				writeError(w, http.StatusUnauthorized, "Authorization required")
				return
			}

			profile, err := profiles.Get(r.Context(), uid)
			switch {
			case errors.Is(err, context.Canceled):
				return
			case errors.Is(err, services.ErrNotFound):
				logger.Infow("Signed-in user has no profile", "uid", uid)
				writeError(w, http.StatusForbidden, i18n.Translate(locale, "accessDenied"))
				return
			case err != nil:
				// A backend failure says nothing about the user's role.
				logger.Errorw("Responsible lookup failed", "uid", uid, "error", err)
				writeError(w, http.StatusServiceUnavailable, i18n.Translate(locale, "errorLoading"))
				return
			}
			if !profile.IsResponsible {
				logger.Infow("Non-responsible user rejected", "uid", uid)
				writeError(w, http.StatusForbidden, i18n.Translate(locale, "accessDenied"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithResponsible(r.Context(), profile)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent event streams working through the logger.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
