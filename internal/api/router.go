package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/teleclinic/telemed-scheduling/internal/clinic"
	"github.com/teleclinic/telemed-scheduling/internal/identity"
)

type RouterConfig struct {
	Service  *clinic.Service
	Verifier *identity.Verifier
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Everything else requires a verified caller identity.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Verifier))

		r.Get("/doctors", listDoctorsHandler(cfg.Service))

		r.Get("/availability/slots", listAvailableSlotsHandler(cfg.Service))
		r.Get("/availability/dates", listAvailableDatesHandler(cfg.Service))
		r.Put("/availability", publishAvailabilityHandler(cfg.Service))
		r.Delete("/availability", clearAvailabilityHandler(cfg.Service))

		r.Post("/appointments", bookAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/accept", acceptAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/refuse", refuseAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/presence", confirmPresenceHandler(cfg.Service))
		r.Get("/appointments/{id}/presence", consultationStatusHandler(cfg.Service))

		r.Post("/consultations/{id}/end", endConsultationHandler(cfg.Service))
		r.Get("/consultations/{id}/messages", listMessagesHandler(cfg.Service))
		r.Post("/consultations/{id}/messages", postMessageHandler(cfg.Service))

		r.Get("/notifications", listNotificationsHandler(cfg.Service))
		r.Post("/notifications/{id}/read", markNotificationReadHandler(cfg.Service))
	})

	return r
}
