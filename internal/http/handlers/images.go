package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"imagestudio/internal/domain"
	"imagestudio/internal/middleware"
	"imagestudio/internal/providers/genai"
	"imagestudio/internal/providers/prompt"
)

const (
	maxJSONBodyBytes   = 1 << 20
	multipartMemory    = 32 << 20
	promptLogPreview   = 50
	multipartOverheads = 1 << 20
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

type generateImageRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negativePrompt"`
}

// EditImage transforms an uploaded image according to the prompt.
func (a *App) EditImage(w http.ResponseWriter, r *http.Request) {
	maxUpload := a.Config.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartOverheads)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.badRequest(w, r, a.fileTooLargeMessage())
			return
		}
		a.badRequest(w, r, "Invalid multipart payload")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		a.badRequest(w, r, "No image file provided")
		return
	}
	defer func() {
		_ = file.Close()
	}()
	if header.Size > maxUpload {
		a.badRequest(w, r, a.fileTooLargeMessage())
		return
	}

	text := r.FormValue("prompt")
	negative := r.FormValue("negativePrompt")
	if err := a.validatePrompt(text, negative); err != nil {
		a.fail(w, r, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUpload+1))
	if err != nil {
		a.badRequest(w, r, "Failed to read image file")
		return
	}
	if int64(len(data)) > maxUpload {
		a.badRequest(w, r, a.fileTooLargeMessage())
		return
	}
	detected := mimetype.Detect(data)
	if !isAllowedImage(detected) {
		a.badRequest(w, r, "Invalid file type. Only JPEG, PNG, and WebP images are allowed.")
		return
	}

	mime := detected.String()
	a.Logger.Info().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("mime", mime).
		Int("bytes", len(data)).
		Str("prompt", preview(text)).
		Msg("edit: processing image edit")

	result, err := a.Gateway.Generate(r.Context(), genai.Request{
		Prompt: prompt.WithNegativePrompt(text, negative),
		Image: &genai.InlineImage{
			MIMEType: mime,
			Data:     "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
		},
		Output: genai.OutputImage,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.Logger.Info().Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("edit: image processed")
	a.json(w, http.StatusOK, newImagesResponse(result.Artifact()))
}

// GenerateImage renders an image from a text prompt.
func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateImageRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	if err := a.validatePrompt(req.Prompt, req.NegativePrompt); err != nil {
		a.fail(w, r, err)
		return
	}

	a.Logger.Info().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("prompt", preview(req.Prompt)).
		Msg("generate: generating image")

	result, err := a.Gateway.Generate(r.Context(), genai.Request{
		Prompt: prompt.WithNegativePrompt(req.Prompt, req.NegativePrompt),
		Output: genai.OutputImage,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.Logger.Info().Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("generate: image generated")
	a.json(w, http.StatusOK, newImagesResponse(result.Artifact()))
}

func (a *App) validatePrompt(text, negative string) error {
	if strings.TrimSpace(text) == "" {
		return domain.Errorf(domain.KindValidation, "Prompt is required")
	}
	rule := "max=" + strconv.Itoa(a.Config.MaxPromptChars)
	if err := a.validate.Var(text, rule); err != nil {
		return domain.Errorf(domain.KindValidation, fmt.Sprintf("Prompt is too long (max %d characters)", a.Config.MaxPromptChars))
	}
	if err := a.validate.Var(negative, rule); err != nil {
		return domain.Errorf(domain.KindValidation, fmt.Sprintf("Negative prompt is too long (max %d characters)", a.Config.MaxPromptChars))
	}
	return nil
}

func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.badRequest(w, r, "Invalid JSON payload")
		return false
	}
	return true
}

func (a *App) fileTooLargeMessage() string {
	return fmt.Sprintf("File is too large (max %dMB)", a.Config.MaxUploadBytes>>20)
}

func isAllowedImage(detected *mimetype.MIME) bool {
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

func preview(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= promptLogPreview {
		return string(runes)
	}
	return string(runes[:promptLogPreview]) + "..."
}
