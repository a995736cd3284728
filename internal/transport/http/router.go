package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-community-notifier/internal/config"
	"github.com/go-community-notifier/internal/domain"
	"github.com/go-community-notifier/internal/transport/http/handler"
	appmiddleware "github.com/go-community-notifier/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds the application router. The returned func releases the
// router's background workers and must be called on shutdown.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, func()) {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Metrics(deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, for token registration.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	healthH := handler.NewHealthHandler()
	notifH := handler.NewNotificationHandler(deps.Notifications)
	tokenH := handler.NewPushTokenHandler(deps.PushTokens)
	dispatchH := handler.NewDispatchHandler(deps.Dispatcher)
	reminderH := handler.NewReminderHandler(deps.Reminders)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread-count", notifH.UnreadCount)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			r.Get("/push-tokens", tokenH.List)
			r.With(sensitiveRL.Limit).Post("/push-tokens", tokenH.Register)
			r.Delete("/push-tokens/{token}", tokenH.Delete)

			// Internal callers: other platform services and admins
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleService, domain.RoleAdmin))
				r.Post("/dispatch", dispatchH.Dispatch)
			})

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))
				r.Post("/reminders/run", reminderH.Run)
			})
		})
	})

	return r, sensitiveRL.Close
}
