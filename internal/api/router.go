package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bookable/booking-engine/internal/booking"
	"github.com/bookable/booking-engine/internal/sweep"
)

type RouterConfig struct {
	Service *booking.Service
	Sweeper *sweep.Sweeper
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/availability/{businessID}", listAvailabilityHandler(cfg.Service))
	r.Get("/availability/slots/{businessID}/{date}", listSlotsHandler(cfg.Service))
	r.Post("/availability", upsertAvailabilityHandler(cfg.Service))
	r.Delete("/availability/{id}", deleteAvailabilityHandler(cfg.Service))

	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Put("/appointments/{id}", updateAppointmentHandler(cfg.Service))
	r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/restore-future", restoreFutureHandler(cfg.Sweeper))

	return r
}
