package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/vidsync/internal/server/handlers"
	"github.com/iudanet/vidsync/internal/server/middleware"
	"github.com/iudanet/vidsync/internal/server/storage"
	vsync "github.com/iudanet/vidsync/internal/sync"
)

// Config содержит настройки HTTP сервера
type Config struct {
	Version         string
	RateLimitWindow time.Duration
	RateLimit       int
}

// NewRouter собирает роутер сервера: health без аутентификации, все
// остальные эндпоинты за middleware разрешения актора и поактерным
// rate limit.
func NewRouter(
	logger *slog.Logger,
	store storage.EntityStorage,
	coord *vsync.Coordinator,
	actorMW func(http.Handler) http.Handler,
	cfg Config,
) http.Handler {
	healthHandler := handlers.NewHealthHandler(logger, cfg.Version)
	entityHandler := handlers.NewEntityHandler(logger, store, coord)
	syncHandler := handlers.NewSyncHandler(logger, coord)

	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingWithSkip(logger, []string{"/api/v1/health"}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(actorMW)
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateLimitWindow, logger))

			r.Post("/entities", entityHandler.Create)
			r.Route("/entities/{entityID}", func(r chi.Router) {
				r.Get("/", entityHandler.Get)
				r.Put("/", entityHandler.Update)
				r.Get("/operations", entityHandler.Operations)
				r.Post("/sync", syncHandler.HandleSync)
			})
		})
	})

	return r
}
