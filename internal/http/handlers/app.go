package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
	"imagestudio/internal/providers/genai"
	"imagestudio/internal/weather"
)

// Gateway is the model client used by the edit and generate endpoints.
type Gateway interface {
	Generate(ctx context.Context, req genai.Request) (*genai.Result, error)
}

// WeatherRunner produces weather cards.
type WeatherRunner interface {
	Run(ctx context.Context, q domain.WeatherQuery) (*weather.Result, error)
}

// App bundles the dependencies shared by every handler. It holds no per-request state.
type App struct {
	Config   *infra.Config
	Gateway  Gateway
	Weather  WeatherRunner
	Logger   *infra.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewApp wires the handlers. A nil logger discards output.
func NewApp(cfg *infra.Config, gateway Gateway, runner WeatherRunner, logger *infra.Logger) *App {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &App{
		Config:   cfg,
		Gateway:  gateway,
		Weather:  runner,
		Logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) timestamp() string {
	return domain.FormatTimestamp(a.now())
}
