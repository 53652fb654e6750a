package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"imagestudio/internal/domain"
	"imagestudio/internal/weather"
)

func TestGenerateWeatherCardSuccess(t *testing.T) {
	facts := domain.WeatherFacts{
		NativeCityName:      "Tokyo",
		NativeDateFormatted: "January 1, 2024",
		WeatherCondition:    "Sunny",
		TempRange:           "5°C - 10°C",
	}
	runner := &stubRunner{result: &weather.Result{
		Artifact: domain.Artifact{MIMEType: domain.ArtifactMIMEType, Data: "aW1n"},
		Facts:    facts,
	}}
	app := newTestApp(testConfig(), &stubGateway{}, runner)

	rec := postJSON(t, app.GenerateWeatherCard, map[string]string{"city": " Tokyo ", "aspectRatio": "1:1", "language": "English"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeImages(t, rec)
	if len(resp.Images) != 1 || resp.Images[0].URL != "data:image/jpeg;base64,aW1n" {
		t.Fatalf("unexpected images: %+v", resp.Images)
	}
	if resp.WeatherData == nil {
		t.Fatal("expected weatherData")
	}
	if diff := cmp.Diff(facts, *resp.WeatherData); diff != "" {
		t.Fatalf("weatherData mismatch (-want +got):\n%s", diff)
	}
	want := []domain.WeatherQuery{{City: "Tokyo", AspectRatio: "1:1", Language: "English"}}
	if diff := cmp.Diff(want, runner.queries); diff != "" {
		t.Fatalf("runner queries mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateWeatherCardPassesUnknownAspectThrough(t *testing.T) {
	runner := &stubRunner{result: &weather.Result{Artifact: domain.Artifact{Data: "aW1n"}}}
	app := newTestApp(testConfig(), &stubGateway{}, runner)

	aspect := strings.Repeat("21:9", 20)
	rec := postJSON(t, app.GenerateWeatherCard, map[string]string{"city": "Tokyo", "aspectRatio": aspect})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if len(runner.queries) != 1 || runner.queries[0].AspectRatio != aspect {
		t.Fatalf("aspect ratio should reach the pipeline unchanged: %+v", runner.queries)
	}
}

func TestGenerateWeatherCardFailures(t *testing.T) {
	city := "Atlantis"
	invalidCity := &weather.Failure{
		Stage: weather.StageReasoningRequested,
		Err:   domain.Wrap(domain.KindInvalidCity, `Could not resolve city "`+city+`"`, nil),
	}

	tests := []struct {
		name     string
		body     any
		noKey    bool
		runErr   error
		status   int
		contains string
		runs     int
	}{
		{name: "missing city", body: map[string]string{}, status: http.StatusBadRequest, contains: "City is required"},
		{name: "blank city", body: map[string]string{"city": "   "}, status: http.StatusBadRequest, contains: "City is required"},
		{name: "city too long", body: map[string]string{"city": strings.Repeat("c", 201)}, status: http.StatusBadRequest, contains: "City name is too long"},
		{name: "malformed json", body: `{"city":`, status: http.StatusBadRequest, contains: "Invalid JSON payload"},
		{name: "no api key", body: map[string]string{"city": "Tokyo"}, noKey: true, status: http.StatusInternalServerError, contains: "not configured"},
		{name: "invalid city", body: map[string]string{"city": city}, runErr: invalidCity, status: http.StatusBadRequest, contains: city, runs: 1},
		{name: "invalid facts", body: map[string]string{"city": "Tokyo"}, runErr: domain.Errorf(domain.KindInvalidFacts, "Failed to parse weather data"), status: http.StatusBadRequest, contains: "parse weather data", runs: 1},
		{name: "timeout", body: map[string]string{"city": "Tokyo"}, runErr: domain.Errorf(domain.KindTimeout, "gemini timed out"), status: http.StatusGatewayTimeout, contains: "timed out", runs: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			if tc.noKey {
				cfg.GeminiAPIKey = ""
			}
			runner := &stubRunner{err: tc.runErr}
			app := newTestApp(cfg, &stubGateway{}, runner)

			rec := postJSON(t, app.GenerateWeatherCard, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
			if resp := decodeError(t, rec); !strings.Contains(resp.Error, tc.contains) {
				t.Fatalf("error = %q, want it to contain %q", resp.Error, tc.contains)
			}
			if len(runner.queries) != tc.runs {
				t.Fatalf("runs = %d, want %d", len(runner.queries), tc.runs)
			}
		})
	}
}
