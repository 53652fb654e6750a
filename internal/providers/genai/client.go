package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultImageModel = "gemini-2.5-flash-image"
	defaultTextModel  = "gemini-2.5-flash"
	defaultTimeout    = 120 * time.Second
	defaultImageMIME  = "image/jpeg"
)

const tracerName = "imagestudio/internal/providers/genai"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	TextModel  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *infra.Logger

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Client is the single adapter performing calls to the Gemini API. It never
// retries; a failed call surfaces to the caller immediately.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	textModel  string
	httpClient *http.Client
	logger     *infra.Logger
	tracer     trace.Tracer
}

// OutputKind selects which model answers a request and which part of the
// response is extracted.
type OutputKind int

const (
	OutputImage OutputKind = iota
	OutputText
)

func (k OutputKind) String() string {
	if k == OutputText {
		return "text"
	}
	return "image"
}

// InlineImage is a reference image sent alongside the prompt. Data is base64 and
// may still carry a data URI prefix.
type InlineImage struct {
	MIMEType string
	Data     string
}

// Request is one round trip to the model.
type Request struct {
	Prompt string
	Image  *InlineImage
	Output OutputKind
}

// Result holds the extracted payload of the first candidate.
type Result struct {
	Text     string
	Image    string
	MIMEType string
	Model    string
}

// Artifact returns the generated image normalized for the external response.
func (r *Result) Artifact() domain.Artifact {
	return domain.Artifact{MIMEType: domain.ArtifactMIMEType, Data: r.Image}
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. A missing API key is
// not an error here; Generate reports it per call so health checks keep working.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		imageModel: firstNonEmpty(opts.ImageModel, defaultImageModel),
		textModel:  firstNonEmpty(opts.TextModel, defaultTextModel),
		httpClient: client,
		logger:     logger,
		tracer:     tp.Tracer(tracerName),
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool { return c.apiKey != "" }

// ImageModel returns the model used for image output.
func (c *Client) ImageModel() string { return c.imageModel }

// TextModel returns the model used for text output.
func (c *Client) TextModel() string { return c.textModel }

// Generate sends req to the model and extracts the first generated artifact.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if !c.Configured() {
		return nil, domain.ErrNotConfigured
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.Errorf(domain.KindMissingInput, "Missing required field: prompt")
	}

	parts := make([]geminiPart, 0, 2)
	if req.Image != nil {
		mime, data := splitDataURI(req.Image.Data)
		if data == "" {
			return nil, domain.Errorf(domain.KindMissingInput, "Missing required field: image")
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: firstNonEmpty(req.Image.MIMEType, mime, defaultImageMIME),
			Data:     data,
		}})
	}
	parts = append(parts, geminiPart{Text: prompt})

	model := c.imageModel
	config := &geminiGenerationConfig{CandidateCount: 1}
	if req.Output == OutputText {
		model = c.textModel
		config.ResponseMimeType = "application/json"
	} else {
		config.ResponseModalities = []string{"TEXT", "IMAGE"}
	}

	ctx, span := c.tracer.Start(ctx, "genai.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("genai.model", model),
		attribute.String("genai.output", req.Output.String()),
		attribute.Bool("genai.has_image", req.Image != nil),
	)

	started := time.Now()
	var response geminiGenerateContentResponse
	payload := geminiGenerateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: config,
	}
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model)), payload, &response); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn().Err(err).Str("model", model).Msg("genai: request failed")
		return nil, err
	}

	result, err := extractFirst(response, req.Output)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	result.Model = model

	c.logger.Debug().
		Str("model", model).
		Str("output", req.Output.String()).
		Dur("elapsed", time.Since(started)).
		Msg("genai: request completed")

	return result, nil
}

func extractFirst(resp geminiGenerateContentResponse, output OutputKind) (*Result, error) {
	if len(resp.Candidates) == 0 {
		return nil, domain.ErrEmptyResult
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch output {
		case OutputText:
			if strings.TrimSpace(part.Text) != "" {
				return &Result{Text: part.Text}, nil
			}
		default:
			if part.InlineData != nil && part.InlineData.Data != "" {
				return &Result{
					Image:    part.InlineData.Data,
					MIMEType: firstNonEmpty(part.InlineData.MimeType, defaultImageMIME),
				}, nil
			}
		}
	}
	if output == OutputText {
		return nil, domain.Errorf(domain.KindEmptyResult, "No text generated from Gemini API")
	}
	return nil, domain.ErrEmptyResult
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Wrap(domain.KindUpstream, "marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Wrap(domain.KindUpstream, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Wrap(domain.KindUpstream, "invoke gemini", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return domain.Errorf(domain.KindUpstream, fmt.Sprintf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message))
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return domain.Errorf(domain.KindUpstream, fmt.Sprintf("gemini status %d: %s", resp.StatusCode, text))
		}
		return domain.Errorf(domain.KindUpstream, fmt.Sprintf("gemini status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Wrap(domain.KindUpstream, "decode gemini response", err)
	}
	return nil
}

// splitDataURI separates "data:<mime>;base64,<payload>" into its MIME type and
// payload. Plain base64 input is returned unchanged with an empty MIME type.
func splitDataURI(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return "", raw
	}
	comma := strings.IndexByte(raw, ',')
	if comma < 0 {
		return "", ""
	}
	meta := strings.TrimPrefix(raw[:comma], "data:")
	meta = strings.TrimSuffix(meta, ";base64")
	return meta, raw[comma+1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
