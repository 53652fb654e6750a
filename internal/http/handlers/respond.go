package handlers

import (
	"net/http"

	"imagestudio/internal/domain"
	"imagestudio/internal/middleware"
)

var statusByKind = map[domain.Kind]int{
	domain.KindNotConfigured: http.StatusInternalServerError,
	domain.KindTimeout:       http.StatusGatewayTimeout,
	domain.KindValidation:    http.StatusBadRequest,
	domain.KindMissingInput:  http.StatusBadRequest,
	domain.KindInvalidCity:   http.StatusBadRequest,
	domain.KindInvalidFacts:  http.StatusBadRequest,
	domain.KindEmptyResult:   http.StatusBadRequest,
	domain.KindNoImage:       http.StatusBadRequest,
	domain.KindUpstream:      http.StatusBadRequest,
}

// StatusFor maps err to the HTTP status the editor expects. Unclassified errors
// are reported as 400.
func StatusFor(err error) int {
	if code, ok := statusByKind[domain.KindOf(err)]; ok {
		return code
	}
	return http.StatusBadRequest
}

type imageURL struct {
	URL string `json:"url"`
}

type imagesResponse struct {
	Images      []imageURL           `json:"images"`
	WeatherData *domain.WeatherFacts `json:"weatherData,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func newImagesResponse(artifact domain.Artifact) imagesResponse {
	return imagesResponse{Images: []imageURL{{URL: artifact.DataURI()}}}
}

func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	event := a.Logger.Warn()
	if code >= http.StatusInternalServerError {
		event = a.Logger.Error()
	}
	event.
		Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("kind", string(domain.KindOf(err))).
		Int("status", code).
		Msg("request failed")
	a.json(w, code, errorResponse{Error: err.Error(), Timestamp: a.timestamp()})
}

func (a *App) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	a.fail(w, r, domain.Errorf(domain.KindValidation, message))
}

// NotFound answers unknown API routes with the standard error body.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusNotFound, errorResponse{Error: "Not found", Timestamp: a.timestamp()})
}
