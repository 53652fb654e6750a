// Package weather turns a city name into a generated weather card: a reasoning
// call produces localized facts, which then parameterize an image call.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
	"imagestudio/internal/providers/genai"
	"imagestudio/internal/providers/prompt"
)

// Stage names a step of the weather card state machine.
type Stage string

const (
	StageStart              Stage = "start"
	StageReasoningRequested Stage = "reasoning_requested"
	StageFactsParsed        Stage = "facts_parsed"
	StageImagePromptBuilt   Stage = "image_prompt_built"
	StageImageRequested     Stage = "image_requested"
	StageDone               Stage = "done"
)

// Gateway is the subset of the model client used by the pipeline.
type Gateway interface {
	Generate(ctx context.Context, req genai.Request) (*genai.Result, error)
}

// Failure records the stage at which a run terminated.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string { return f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

// Result is the output of a successful run.
type Result struct {
	Artifact domain.Artifact
	Facts    domain.WeatherFacts
}

// Pipeline runs the two model calls strictly in sequence. It holds no per-run
// state and is safe for concurrent use.
type Pipeline struct {
	gateway Gateway
	now     func() time.Time
	logger  *infra.Logger
	tracer  trace.Tracer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the wall clock captured at the start of each run.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger used for stage transitions.
func WithLogger(logger *infra.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracerProvider sets the provider for run spans. The global provider is
// used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracer = tp.Tracer("imagestudio/internal/weather")
		}
	}
}

// NewPipeline builds a pipeline on top of gateway.
func NewPipeline(gateway Gateway, opts ...Option) *Pipeline {
	discard := zerolog.New(io.Discard)
	p := &Pipeline{
		gateway: gateway,
		now:     time.Now,
		logger:  &discard,
		tracer:  otel.Tracer("imagestudio/internal/weather"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run generates a weather card for q. Any failure terminates the run and no
// partial output is returned.
func (p *Pipeline) Run(ctx context.Context, q domain.WeatherQuery) (*Result, error) {
	city := strings.TrimSpace(q.City)
	if city == "" {
		return nil, &Failure{Stage: StageStart, Err: domain.Errorf(domain.KindValidation, "City is required")}
	}
	now := p.now().UTC()
	lang := prompt.ParseLanguage(q.Language)
	aspect := prompt.NormalizeAspectRatio(q.AspectRatio)

	ctx, span := p.tracer.Start(ctx, "weather.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("weather.city", city),
		attribute.String("weather.language", lang.String()),
		attribute.String("weather.aspect_ratio", aspect),
	)

	log := p.logger.With().Str("city", city).Str("language", lang.String()).Logger()

	log.Debug().Str("stage", string(StageReasoningRequested)).Msg("weather: requesting facts")
	reasoning, err := p.gateway.Generate(ctx, genai.Request{
		Prompt: prompt.BuildReasoningPrompt(city, now, lang),
		Output: genai.OutputText,
	})
	if err != nil {
		return nil, p.fail(span, log, StageReasoningRequested, err)
	}

	facts, err := ParseFacts(reasoning.Text)
	if err != nil {
		if domain.KindOf(err) == domain.KindInvalidCity {
			err = domain.Wrap(domain.KindInvalidCity, "Could not resolve city \""+city+"\"", errors.Unwrap(err))
		}
		return nil, p.fail(span, log, StageReasoningRequested, err)
	}
	log.Debug().Str("stage", string(StageFactsParsed)).Str("native_city_name", facts.NativeCityName).Msg("weather: facts parsed")

	imagePrompt := prompt.BuildImagePrompt(facts, aspect, lang)
	log.Debug().Str("stage", string(StageImagePromptBuilt)).Int("prompt_chars", len(imagePrompt)).Msg("weather: image prompt built")

	image, err := p.gateway.Generate(ctx, genai.Request{
		Prompt: imagePrompt,
		Output: genai.OutputImage,
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindEmptyResult {
			err = domain.Wrap(domain.KindNoImage, "No image generated for weather card", err)
		}
		return nil, p.fail(span, log, StageImageRequested, err)
	}

	span.SetStatus(codes.Ok, "")
	log.Debug().Str("stage", string(StageDone)).Msg("weather: card generated")
	return &Result{Artifact: image.Artifact(), Facts: facts}, nil
}

func (p *Pipeline) fail(span trace.Span, log zerolog.Logger, stage Stage, err error) error {
	span.SetAttributes(attribute.String("weather.failed_stage", string(stage)))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Warn().Err(err).Str("stage", string(stage)).Str("kind", string(domain.KindOf(err))).Msg("weather: pipeline failed")
	return &Failure{Stage: stage, Err: err}
}

// ParseFacts validates the reasoning reply. Only the four known fields are
// trusted; an "error" key marks the city as unresolvable.
func ParseFacts(raw string) (domain.WeatherFacts, error) {
	var zero domain.WeatherFacts
	cleaned := prompt.ExtractJSON(raw)
	if cleaned == "" {
		return zero, domain.Errorf(domain.KindInvalidFacts, "Weather data response was empty")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return zero, domain.Wrap(domain.KindInvalidFacts, "Failed to parse weather data", err)
	}
	if reason, ok := fields["error"]; ok && string(reason) != "null" {
		return zero, domain.Wrap(domain.KindInvalidCity, "Could not resolve city", errors.New(rawText(reason)))
	}

	facts := domain.WeatherFacts{}
	required := []struct {
		key string
		dst *string
	}{
		{"native_city_name", &facts.NativeCityName},
		{"native_date_formatted", &facts.NativeDateFormatted},
		{"weather_condition", &facts.WeatherCondition},
		{"temp_range", &facts.TempRange},
	}
	for _, field := range required {
		value, ok := fields[field.key]
		if !ok {
			return zero, domain.Errorf(domain.KindInvalidFacts, fmt.Sprintf("Weather data is missing %q", field.key))
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil || strings.TrimSpace(s) == "" {
			return zero, domain.Errorf(domain.KindInvalidFacts, fmt.Sprintf("Weather data field %q must be non-empty text", field.key))
		}
		*field.dst = strings.TrimSpace(s)
	}
	return facts, nil
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
