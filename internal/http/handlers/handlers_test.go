package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
	"imagestudio/internal/providers/genai"
	"imagestudio/internal/weather"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type stubGateway struct {
	mu       sync.Mutex
	requests []genai.Request
	result   *genai.Result
	err      error
}

func (s *stubGateway) Generate(ctx context.Context, req genai.Request) (*genai.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &genai.Result{Image: "aW1n", MIMEType: "image/png"}, nil
}

func (s *stubGateway) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type stubRunner struct {
	queries []domain.WeatherQuery
	result  *weather.Result
	err     error
}

func (s *stubRunner) Run(ctx context.Context, q domain.WeatherQuery) (*weather.Result, error) {
	s.queries = append(s.queries, q)
	return s.result, s.err
}

func testConfig() *infra.Config {
	return &infra.Config{
		GeminiAPIKey:    "test-key",
		GeminiModel:     "gemini-2.5-flash-image",
		GeminiTextModel: "gemini-2.5-flash",
		MaxUploadBytes:  1 << 20,
		MaxPromptChars:  2000,
	}
}

func newTestApp(cfg *infra.Config, gw Gateway, runner WeatherRunner) *App {
	app := NewApp(cfg, gw, runner, nil)
	app.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return app
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case string:
		buf.WriteString(v)
	default:
		if err := json.NewEncoder(&buf).Encode(v); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		part, err := mw.CreateFormFile("image", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(file); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeImages(t *testing.T, rec *httptest.ResponseRecorder) imagesResponse {
	t.Helper()
	var resp imagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, rec.Body.String())
	}
	if resp.Error == "" || resp.Timestamp == "" {
		t.Fatalf("incomplete error body: %s", rec.Body.String())
	}
	return resp
}
