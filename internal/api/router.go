package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pawlink/vet-scheduling/internal/booking"
)

type RouterConfig struct {
	Catalog   *booking.Catalog
	Engine    *booking.Engine
	Lifecycle *booking.Lifecycle
	Search    *booking.SearchIndex
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    *zap.Logger
	JWTSecret string
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	if cfg.PgPool != nil && cfg.Redis != nil {
		health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
		r.Get("/health/live", health.Liveness)
		r.Get("/health/ready", health.Readiness)
	}

	// Discovery is public; it is an advisory read with no side effects.
	r.Get("/search/vets", searchVetsHandler(cfg.Search))

	// Everything else acts on behalf of a principal.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/slots", createSlotHandler(cfg.Catalog))
		r.Delete("/slots/{slotID}", deleteSlotHandler(cfg.Catalog))
		r.Get("/vets/{vetID}/slots", listSlotsHandler(cfg.Catalog))

		r.Post("/appointments", bookAppointmentHandler(cfg.Engine))
		r.Get("/appointments", listAppointmentsHandler(cfg.Lifecycle))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Lifecycle))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Engine))
		r.Post("/appointments/{id}/status", updateAppointmentStatusHandler(cfg.Lifecycle))
	})

	return r
}
