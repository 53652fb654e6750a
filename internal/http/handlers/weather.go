package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"imagestudio/internal/domain"
	"imagestudio/internal/middleware"
)

// GenerateWeatherCard runs the two step weather card pipeline for a city.
func (a *App) GenerateWeatherCard(w http.ResponseWriter, r *http.Request) {
	var q domain.WeatherQuery
	if !a.decodeJSON(w, r, &q) {
		return
	}
	q.City = strings.TrimSpace(q.City)
	q.AspectRatio = strings.TrimSpace(q.AspectRatio)
	q.Language = strings.TrimSpace(q.Language)
	if err := a.validate.Struct(q); err != nil {
		a.badRequest(w, r, weatherValidationMessage(err))
		return
	}
	if !a.Config.APIConfigured() {
		a.fail(w, r, domain.ErrNotConfigured)
		return
	}

	a.Logger.Info().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("city", q.City).
		Str("aspect_ratio", q.AspectRatio).
		Str("language", q.Language).
		Msg("weather: generating weather card")

	result, err := a.Weather.Run(r.Context(), q)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	resp := newImagesResponse(result.Artifact)
	facts := result.Facts
	resp.WeatherData = &facts
	a.json(w, http.StatusOK, resp)
}

func weatherValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid weather card request"
	}
	fe := verrs[0]
	switch fe.Field() {
	case "City":
		if fe.Tag() == "required" {
			return "City is required"
		}
		return "City name is too long"
	case "Language":
		return "Language is invalid"
	}
	return "Invalid weather card request"
}
