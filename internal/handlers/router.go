package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/middleware"
)

// Route prefixes shared by the router and the rendered links.
const (
	APIPrefix   = "/api/v1"
	ProblemsURL = APIPrefix + "/problems"
	ViewURL     = ProblemsURL + "/view"
	RelayURL    = APIPrefix + "/notify/whatsapp"
)

// RouterDeps collects everything the dashboard router mounts.
type RouterDeps struct {
	Health   *HealthHandler
	Auth     *AuthHandler
	Problems *ProblemHandler
	Reports  *ReportHandler
	Push     *PushHandler
	Relay    *RelayHandler // nil when UltraMsg is not configured

	Tokens   middleware.TokenValidator
	Profiles middleware.ProfileLookup
	Limiter  middleware.Limiter

	AllowedOrigins []string
	DefaultLocale  string
	RequestTimeout time.Duration

	Logger *zap.Logger
}

// NewRouter builds the dashboard API router.
func NewRouter(d RouterDeps) http.Handler {
	sugar := d.Logger.Sugar()
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Locale(d.DefaultLocale))
	if d.Limiter != nil {
		r.Use(middleware.RateLimit(d.Limiter, sugar))
	}

	// The relay is called from anywhere and keeps its own CORS policy.
	if d.Relay != nil {
		r.With(anyOriginCORS()).HandleFunc(RelayURL, d.Relay.Send)
	}

	r.Route(APIPrefix, func(r chi.Router) {
		// Subrouter level so preflights are answered before method matching.
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "If-Match", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "ETag", "Content-Language"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		// Streams outlive the request timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Tokens))
			r.Use(middleware.RequireResponsible(d.Profiles, sugar))
			r.Get("/problems/stream", d.Problems.Stream)
		})

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(d.RequestTimeout))

			// Health check
			r.Get("/health", d.Health.Check)
			r.Get("/health/ready", d.Health.Ready)

			r.Post("/auth/login", d.Auth.Login)
			r.Post("/auth/google", d.Auth.Google)

			// Dashboard endpoints (responsibles only)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(d.Tokens))
				r.Use(middleware.RequireResponsible(d.Profiles, sugar))

				r.Get("/me", d.Auth.Me)

				r.Route("/problems", func(r chi.Router) {
					r.Get("/", d.Problems.List)
					r.Get("/view", d.Problems.View)
					r.Get("/{id}", d.Problems.Get)
					r.Patch("/{id}", d.Problems.Update)
					r.Patch("/{id}/status", d.Problems.UpdateStatus)
				})

				r.Get("/reports", d.Reports.Get)

				r.Get("/push/config", d.Push.Config)
				r.Post("/push/tokens", d.Push.Register)
			})
		})
	})

	return r
}

// NewRelayRouter builds the router of the standalone relay binary.
func NewRelayRouter(relay *RelayHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(anyOriginCORS())

	r.HandleFunc("/", relay.Send)
	r.HandleFunc("/sendWhatsAppNotification", relay.Send)
	return r
}

func anyOriginCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}
