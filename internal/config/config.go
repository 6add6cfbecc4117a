package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port              int
	NatsURL           string
	NatsToken         string
	DatabaseURL       string
	LogLevel          string
	Backend           string // "gemini" or "ollama"
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	OllamaURL         string
	OllamaModel       string
	MaxAttempts       int
	LLMTimeoutSeconds int
	DiagnosticsDir    string
}

func Load() Config {
	return Config{
		Port:              envInt("MENDEL_PORT", 8760),
		NatsURL:           envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:         envStr("NATS_TOKEN", ""),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		Backend:           envStr("MENDEL_BACKEND", "gemini"),
		GeminiAPIKey:      envStr("GEMINI_API_KEY", ""),
		GeminiModel:       envStr("GEMINI_MODEL", "gemini-2.5-pro"),
		GeminiBaseURL:     envStr("GEMINI_BASE_URL", ""),
		OllamaURL:         envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:       envStr("OLLAMA_MODEL", "deepseek-r1:14b"),
		MaxAttempts:       envInt("MENDEL_MAX_ATTEMPTS", 2),
		LLMTimeoutSeconds: envInt("MENDEL_LLM_TIMEOUT_SECONDS", 600),
		DiagnosticsDir:    envStr("MENDEL_DIAGNOSTICS_DIR", "errores"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
