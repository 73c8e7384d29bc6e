package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/event-checkin/internal/auth"
	"github.com/Shivanand-hulikatti/event-checkin/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig collects what NewRouter needs besides the handlers.
type RouterConfig struct {
	Signer      *auth.Signer
	Metrics     *metrics.Metrics
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter builds the chi router for the check-in API.
func NewRouter(h *CheckinHandler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(logger))
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(cfg.Metrics.Instrument)

	// Public
	r.Get("/health", HealthCheck)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	// Door staff and administrators
	r.Group(func(r chi.Router) {
		r.Use(cfg.Signer.Authenticate)
		r.Use(auth.RequireRole(auth.RoleStaff, auth.RoleAdmin))

		r.Route("/events/{id}", func(r chi.Router) {
			r.Post("/checkin", h.CheckIn)
			r.Get("/rsvps/{userID}/token", h.IssueToken)
			r.Get("/attendance", h.Attendance)
			r.Get("/attendees", h.Attendees)
			r.Get("/attendees.csv", h.AttendeesCSV)
		})
	})

	// Administrators only
	r.Group(func(r chi.Router) {
		r.Use(cfg.Signer.Authenticate)
		r.Use(auth.RequireRole(auth.RoleAdmin))

		r.Post("/rsvps/{id}/actions", h.AdminAction)
	})

	return r
}
