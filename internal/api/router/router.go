package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agendohealth/agenda-api/internal/http/handlers"
	httpmiddleware "github.com/agendohealth/agenda-api/internal/http/middleware"
	"github.com/agendohealth/agenda-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger   *logging.Logger
	Schedule *handlers.ScheduleHandler
	Health   *handlers.HealthHandler

	SessionJWTSecret   string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// MutationRatePerSecond throttles the toggle endpoints per client IP.
	// Zero disables the limiter.
	MutationRatePerSecond float64
	MutationBurst         int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: health, metrics, and the calendar read views the
	// booking surfaces poll.
	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Get("/health", cfg.Health.Liveness)
			public.Get("/health/ready", cfg.Health.Readiness)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Schedule != nil {
			public.Route("/api/doctors/{doctorID}", func(r chi.Router) {
				r.Get("/", cfg.Schedule.GetDoctor)
				r.Get("/blocked-dates", cfg.Schedule.GetBlockedDates)
				r.Get("/blocked-time-slots", cfg.Schedule.GetBlockedTimeSlots)
			})
		}
	})

	// Clinic admin endpoints: session-scoped, tenant-checked mutations and
	// the calendar dialog's day view.
	if cfg.Schedule != nil {
		r.Route("/api/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.SessionJWT(cfg.SessionJWTSecret))
			admin.Get("/doctors/{doctorID}/day-view", cfg.Schedule.GetDayView)
			admin.Get("/doctors/{doctorID}/overrides", cfg.Schedule.GetOverrides)

			admin.Group(func(mutations chi.Router) {
				if cfg.MutationRatePerSecond > 0 {
					mutations.Use(httpmiddleware.RateLimit(cfg.MutationRatePerSecond, cfg.MutationBurst))
				}
				mutations.Post("/block-date", cfg.Schedule.BlockDate)
				mutations.Post("/adhoc-availability", cfg.Schedule.AdHocAvailability)
				mutations.Post("/block-time-slot", cfg.Schedule.BlockTimeSlot)
			})
		})
	}

	return r
}
