// Package httptransport is the thin HTTP layer. Handlers validate input,
// build typed requests, and delegate to the services; no business logic
// lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keygate/internal/admin"
	"keygate/internal/auth/service"
	"keygate/internal/platform/middleware"
	httpjson "keygate/internal/transport/http/json"
)

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler bundles the services the HTTP surface exposes.
type Handler struct {
	auth   *service.Service
	admin  *admin.Service
	health map[string]HealthChecker
	logger *slog.Logger
}

// NewHandler constructs the HTTP handler set. The health map is keyed by
// dependency name ("postgres", "redis") and may be empty.
func NewHandler(auth *service.Service, adminSvc *admin.Service, health map[string]HealthChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:   auth,
		admin:  adminSvc,
		health: health,
		logger: logger,
	}
}

// NewRouter wires all endpoints with the standard middleware stack.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Post("/v1/auth/login", h.handleLogin)
		r.Post("/v1/auth/register", h.handleRegister)
		r.Post("/v1/session/heartbeat", h.handleHeartbeat)
		r.Post("/v1/session/logout", h.handleLogout)
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Route("/applications", func(r chi.Router) {
			r.Post("/", h.handleCreateApplication)
			r.Get("/", h.handleListApplications)
			r.Route("/{appID}", func(r chi.Router) {
				r.Get("/", h.handleGetApplication)
				r.Patch("/", h.handleUpdateApplication)
				r.Delete("/", h.handleDeleteApplication)
				r.Post("/rotate-key", h.handleRotateAPIKey)

				r.Post("/licenses", h.handleCreateLicense)
				r.Get("/licenses", h.handleListLicenses)
				r.Get("/users", h.handleListUsers)
				r.Post("/blacklist", h.handleCreateBlacklistEntry)
				r.Get("/blacklist", h.handleListBlacklist)
				r.Post("/webhooks", h.handleCreateWebhook)
				r.Get("/webhooks", h.handleListWebhooks)
				r.Get("/sessions", h.handleListSessions)
				r.Delete("/sessions/{token}", h.handleTerminateSession)
				r.Get("/activity", h.handleActivityLog)
			})
		})
		r.Route("/licenses/{licenseID}", func(r chi.Router) {
			r.Get("/", h.handleGetLicense)
			r.Patch("/", h.handleUpdateLicense)
			r.Delete("/", h.handleDeleteLicense)
		})
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", h.handleGetUser)
			r.Patch("/", h.handleUpdateUser)
			r.Delete("/", h.handleDeleteUser)
			r.Post("/pause", h.handlePauseUser)
			r.Post("/unpause", h.handleUnpauseUser)
			r.Post("/reset-hwid", h.handleResetHwid)
		})
		r.Delete("/blacklist/{entryID}", h.handleDeleteBlacklistEntry)
		r.Route("/webhooks/{webhookID}", func(r chi.Router) {
			r.Patch("/", h.handleUpdateWebhook)
			r.Delete("/", h.handleDeleteWebhook)
		})
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(h.health))
	for name, dep := range h.health {
		if err := dep.Health(r.Context()); err != nil {
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	httpjson.WriteJSON(w, status, map[string]any{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
