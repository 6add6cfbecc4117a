package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitalia-health/mendel/internal/api"
	"github.com/vitalia-health/mendel/internal/bus"
	"github.com/vitalia-health/mendel/internal/config"
	"github.com/vitalia-health/mendel/internal/diagnostics"
	"github.com/vitalia-health/mendel/internal/extractor"
	"github.com/vitalia-health/mendel/internal/llm"
	"github.com/vitalia-health/mendel/internal/llm/gemini"
	"github.com/vitalia-health/mendel/internal/llm/ollama"
	"github.com/vitalia-health/mendel/internal/processor"
	"github.com/vitalia-health/mendel/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("mendel starting", "port", cfg.Port, "backend", cfg.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected")

	// LLM backend
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	var completer llm.Completer
	switch cfg.Backend {
	case "ollama":
		completer = ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel, timeout)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Error("GEMINI_API_KEY is required")
			os.Exit(1)
		}
		c := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, timeout)
		if cfg.GeminiBaseURL != "" {
			c.SetBaseURL(cfg.GeminiBaseURL)
		}
		completer = c
	default:
		slog.Error("unknown backend", "backend", cfg.Backend)
		os.Exit(1)
	}
	slog.Info("llm client ready", "model", completer.Model())

	// Extractor
	diag := diagnostics.NewRecorder(cfg.DiagnosticsDir)
	ext := extractor.New(completer, diag, slog.Default())

	// NATS
	busClient, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Processor
	proc := processor.New(db, ext, busClient, cfg.MaxAttempts, slog.Default())

	// Subscribe to transcript events
	if err := busClient.Subscribe(bus.SubjectTranscriptStored, proc.HandleTranscriptStored); err != nil {
		slog.Error("failed to subscribe to transcript events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, proc, db, completer.Model(), slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("mendel ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("mendel stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
