package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"imagestudio/internal/domain"
	"imagestudio/internal/providers/genai"
)

func TestGenerateImageSuccess(t *testing.T) {
	gw := &stubGateway{}
	app := newTestApp(testConfig(), gw, &stubRunner{})

	rec := postJSON(t, app.GenerateImage, map[string]string{"prompt": "a red fox", "negativePrompt": "blur"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeImages(t, rec)
	if len(resp.Images) != 1 || resp.Images[0].URL != "data:image/jpeg;base64,aW1n" {
		t.Fatalf("unexpected images: %+v", resp.Images)
	}
	if resp.WeatherData != nil {
		t.Fatal("generate response must not carry weatherData")
	}
	if gw.calls() != 1 {
		t.Fatalf("gateway calls = %d, want 1", gw.calls())
	}
	got := gw.requests[0]
	if got.Image != nil || got.Output != genai.OutputImage {
		t.Fatalf("unexpected gateway request: %+v", got)
	}
	if got.Prompt != "a red fox\nAvoid: blur" {
		t.Fatalf("prompt = %q", got.Prompt)
	}
}

func TestGenerateImageValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		message string
	}{
		{name: "missing prompt", body: map[string]string{}, message: "Prompt is required"},
		{name: "blank prompt", body: map[string]string{"prompt": "   "}, message: "Prompt is required"},
		{name: "too long", body: map[string]string{"prompt": strings.Repeat("a", 2001)}, message: "Prompt is too long"},
		{name: "negative too long", body: map[string]string{"prompt": "ok", "negativePrompt": strings.Repeat("n", 2001)}, message: "Negative prompt is too long"},
		{name: "malformed json", body: `{"prompt":`, message: "Invalid JSON payload"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gw := &stubGateway{}
			app := newTestApp(testConfig(), gw, &stubRunner{})
			rec := postJSON(t, app.GenerateImage, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if resp := decodeError(t, rec); !strings.Contains(resp.Error, tc.message) {
				t.Fatalf("error = %q, want %q", resp.Error, tc.message)
			}
			if gw.calls() != 0 {
				t.Fatalf("gateway calls = %d, want 0", gw.calls())
			}
		})
	}
}

func TestGenerateImageExactLimitAccepted(t *testing.T) {
	gw := &stubGateway{}
	app := newTestApp(testConfig(), gw, &stubRunner{})
	rec := postJSON(t, app.GenerateImage, map[string]string{"prompt": strings.Repeat("a", 2000)})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateImageWithoutKey(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = ""
	app := newTestApp(cfg, genai.NewClient(genai.Options{}), &stubRunner{})

	rec := postJSON(t, app.GenerateImage, map[string]string{"prompt": "a red fox"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if resp := decodeError(t, rec); !strings.Contains(resp.Error, "not configured") {
		t.Fatalf("error = %q", resp.Error)
	}
}

func TestGenerateImageGatewayFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "empty result", err: domain.ErrEmptyResult, status: http.StatusBadRequest},
		{name: "upstream", err: domain.Errorf(domain.KindUpstream, "gemini status 503: overloaded"), status: http.StatusBadRequest},
		{name: "deadline", err: domain.Wrap(domain.KindUpstream, "invoke gemini", context.DeadlineExceeded), status: http.StatusGatewayTimeout},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(testConfig(), &stubGateway{err: tc.err}, &stubRunner{})
			rec := postJSON(t, app.GenerateImage, map[string]string{"prompt": "a red fox"})
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			decodeError(t, rec)
		})
	}
}

func TestEditImageSuccess(t *testing.T) {
	gw := &stubGateway{}
	app := newTestApp(testConfig(), gw, &stubRunner{})

	req := multipartRequest(t, map[string]string{"prompt": "make it blue"}, "photo.png", pngHeader)
	rec := httptest.NewRecorder()
	app.EditImage(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeImages(t, rec)
	if len(resp.Images) != 1 || !strings.HasPrefix(resp.Images[0].URL, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected images: %+v", resp.Images)
	}

	if gw.calls() != 1 {
		t.Fatalf("gateway calls = %d, want 1", gw.calls())
	}
	sent := gw.requests[0]
	if sent.Image == nil || sent.Image.MIMEType != "image/png" {
		t.Fatalf("unexpected inline image: %+v", sent.Image)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
	if sent.Image.Data != want {
		t.Fatalf("image data = %q, want %q", sent.Image.Data, want)
	}
	if sent.Prompt != "make it blue" {
		t.Fatalf("prompt = %q", sent.Prompt)
	}
}

func TestEditImageRejections(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		file    []byte
		message string
	}{
		{name: "no image", fields: map[string]string{"prompt": "edit"}, message: "No image file provided"},
		{name: "no prompt", fields: map[string]string{}, file: pngHeader, message: "Prompt is required"},
		{name: "wrong type", fields: map[string]string{"prompt": "edit"}, file: []byte("just some plain text"), message: "Invalid file type"},
		{name: "prompt too long", fields: map[string]string{"prompt": strings.Repeat("p", 2001)}, file: pngHeader, message: "Prompt is too long"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gw := &stubGateway{}
			app := newTestApp(testConfig(), gw, &stubRunner{})
			rec := httptest.NewRecorder()
			app.EditImage(rec, multipartRequest(t, tc.fields, "upload.bin", tc.file))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			if resp := decodeError(t, rec); !strings.Contains(resp.Error, tc.message) {
				t.Fatalf("error = %q, want %q", resp.Error, tc.message)
			}
			if gw.calls() != 0 {
				t.Fatalf("gateway calls = %d, want 0", gw.calls())
			}
		})
	}
}

func TestEditImageTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 1 << 10
	gw := &stubGateway{}
	app := newTestApp(cfg, gw, &stubRunner{})

	big := append(append([]byte{}, pngHeader...), make([]byte, 4<<10)...)
	rec := httptest.NewRecorder()
	app.EditImage(rec, multipartRequest(t, map[string]string{"prompt": "edit"}, "big.png", big))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec); !strings.Contains(resp.Error, "too large") {
		t.Fatalf("error = %q", resp.Error)
	}
	if gw.calls() != 0 {
		t.Fatalf("gateway calls = %d, want 0", gw.calls())
	}
}
