package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"imagestudio/internal/domain"
	"imagestudio/internal/infra"
	"imagestudio/internal/providers/genai"
	"imagestudio/internal/weather"
)

func main() {
	var (
		cityFlag   string
		aspectFlag string
		langFlag   string
		outFlag    string
	)
	flag.StringVar(&cityFlag, "city", "", "City to render a weather card for")
	flag.StringVar(&aspectFlag, "aspect", "9:16", "Aspect ratio (9:16, 1:1, 16:9, 4:5)")
	flag.StringVar(&langFlag, "lang", "Local (Auto)", "Language of the card text, a name or BCP-47 tag")
	flag.StringVar(&outFlag, "out", "weather-card.jpg", "Output image path")
	flag.Parse()

	_ = godotenv.Load()

	city := strings.TrimSpace(cityFlag)
	if city == "" {
		fmt.Fprintln(os.Stderr, "-city is required")
		os.Exit(1)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.APIConfigured() {
		fmt.Fprintln(os.Stderr, "GEMINI_API_KEY is required via environment or .env")
		os.Exit(1)
	}

	logger := infra.NewLogger("cli", cfg.LogFile).With().Str("cmd", "weathercard").Logger()
	gateway := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiModel,
		TextModel:  cfg.GeminiTextModel,
		Timeout:    cfg.GeminiTimeout,
		Logger:     &logger,
	})
	pipeline := weather.NewPipeline(gateway, weather.WithLogger(&logger))

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.GeminiTimeout)
	defer cancel()

	result, err := pipeline.Run(ctx, domain.WeatherQuery{City: city, AspectRatio: aspectFlag, Language: langFlag})
	if err != nil {
		fmt.Fprintf(os.Stderr, "weather card failed (%s): %v\n", domain.KindOf(err), err)
		os.Exit(1)
	}

	data, err := base64.StdEncoding.DecodeString(result.Artifact.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode image: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outFlag, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outFlag, err)
		os.Exit(1)
	}

	facts, _ := json.MarshalIndent(result.Facts, "", "  ")
	fmt.Printf("%s\nweather card written to %s\n", facts, outFlag)
}
