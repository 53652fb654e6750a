package httpapi

import (
	"net/http"
	"time"

	"imagestudio/internal/http/handlers"
	"imagestudio/internal/infra"
	"imagestudio/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(logger),
		middleware.Recoverer(logger),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
			r.Post("/edit-image", app.EditImage)
			r.Post("/generate-image", app.GenerateImage)
			r.Post("/generate-weather-card", app.GenerateWeatherCard)
		})

		r.NotFound(app.NotFound)
	})

	return r
}
