// Package router assembles the HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/socialgate/internal/http/controllers"
	"github.com/dropDatabas3/socialgate/internal/http/middlewares"
	"github.com/dropDatabas3/socialgate/internal/rate"
)

type Deps struct {
	Social *controllers.SocialController
	Health *controllers.HealthController

	// Metrics is the /metrics handler; nil disables the endpoint.
	Metrics http.Handler

	// Limiter guards the OAuth endpoints; nil disables rate limiting.
	Limiter rate.Limiter
	RateMax int64
}

func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
		middlewares.WithRecover(),
		middlewares.WithSecurityHeaders(),
	)

	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/oauth", func(oauth chi.Router) {
		oauth.Use(middlewares.WithNoStore())
		if deps.Limiter != nil {
			oauth.Use(middlewares.WithRateLimit(deps.Limiter, deps.RateMax))
		}

		oauth.Get("/github", deps.Social.Start)
		oauth.Post("/github", deps.Social.Start)
		oauth.Get("/github/callback", deps.Social.Callback)
	})

	return r
}
