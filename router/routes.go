package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gmopay/handler"
	"github.com/mstgnz/gmopay/infra/middle"
	v1 "github.com/mstgnz/gmopay/router/v1"
)

// Config carries what the router mounts
type Config struct {
	APIKey string
	Health *handler.HealthHandler
	V1     v1.Handlers
}

// Routes mounts the public health check and the API key protected /v1 group
func Routes(r chi.Router, cfg Config) {
	if cfg.Health != nil {
		r.Get("/health", cfg.Health.CheckHealth)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middle.AuthMiddleware(cfg.APIKey))
		v1.Routes(r, cfg.V1)
	})
}
