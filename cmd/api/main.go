package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"imagestudio/internal/http/handlers"
	httpapi "imagestudio/internal/http/httpapi"
	"imagestudio/internal/infra"
	"imagestudio/internal/providers/genai"
	"imagestudio/internal/weather"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogFile)

	tp, err := infra.NewTracerProvider(context.Background(), cfg, os.Stdout)
	if err != nil {
		logger.Fatal().Err(err).Msg("init tracing")
	}
	if tp != nil {
		otel.SetTracerProvider(tp)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Msg("tracer shutdown")
			}
		}()
		logger.Info().Str("exporter", cfg.TracesExporter).Msg("tracing enabled")
	}

	gateway := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiModel,
		TextModel:  cfg.GeminiTextModel,
		Timeout:    cfg.GeminiTimeout,
		Logger:     &logger,
	})
	pipeline := weather.NewPipeline(gateway, weather.WithLogger(&logger))

	app := handlers.NewApp(cfg, gateway, pipeline, &logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	logger.Info().
		Str("addr", server.Addr()).
		Bool("api_configured", cfg.APIConfigured()).
		Str("model", gateway.ImageModel()).
		Str("text_model", gateway.TextModel()).
		Msg("API listening")
	if !cfg.APIConfigured() {
		logger.Warn().Msg("GEMINI_API_KEY not set; generation endpoints will answer 500")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg.ShutdownGrace); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
