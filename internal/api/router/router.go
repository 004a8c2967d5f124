package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/littleoak-health/intake-platform/internal/appointments"
	"github.com/littleoak-health/intake-platform/internal/availability"
	httpmiddleware "github.com/littleoak-health/intake-platform/internal/http/middleware"
	"github.com/littleoak-health/intake-platform/internal/scheduling"
	"github.com/littleoak-health/intake-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	SchedulingHandler   *scheduling.Handler
	AppointmentsHandler *appointments.Handler
	AvailabilityHandler *availability.Handler
	AdminJWTSecret      string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
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

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.SchedulingHandler != nil {
			public.Get("/therapists/{therapistID}/slots", cfg.SchedulingHandler.GetSlots)
		}

		if cfg.AppointmentsHandler != nil {
			public.Route("/appointments", func(r chi.Router) {
				r.Post("/", cfg.AppointmentsHandler.Book)
				r.Get("/{appointmentID}", cfg.AppointmentsHandler.Get)
				r.Post("/{appointmentID}/confirm", cfg.AppointmentsHandler.Confirm)
				r.Post("/{appointmentID}/cancel", cfg.AppointmentsHandler.Cancel)
				r.Post("/{appointmentID}/reschedule", cfg.AppointmentsHandler.Reschedule)
			})
		}
	})

	// Admin endpoints (JWT-guarded)
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))

		if cfg.AvailabilityHandler != nil {
			admin.Route("/therapists/{therapistID}", func(r chi.Router) {
				r.Post("/availability", cfg.AvailabilityHandler.CreateWindow)
				r.Get("/availability", cfg.AvailabilityHandler.ListWindows)
				r.Delete("/availability/{windowID}", cfg.AvailabilityHandler.DeleteWindow)
				r.Post("/time-off", cfg.AvailabilityHandler.CreateTimeOff)
				r.Get("/time-off", cfg.AvailabilityHandler.ListTimeOff)
			})
		}

		if cfg.AppointmentsHandler != nil {
			admin.Post("/appointments/{appointmentID}/complete", cfg.AppointmentsHandler.Complete)
			admin.Post("/appointments/{appointmentID}/no-show", cfg.AppointmentsHandler.MarkNoShow)
		}
	})

	return r
}
