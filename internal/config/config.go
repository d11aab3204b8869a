package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	CORSAllowOrigin    []string
	GeminiAPIKey       string
	GeminiModel        string
	AcceptedMediaTypes []string
	MaxUploadBytes     int64
	StagingDir         string
	GeneratedDir       string
	ModelTimeout       time.Duration
	RenderTimeout      time.Duration
	PageSize           string
	PageMarginInches   float64
	RetentionMaxAge    time.Duration
	RetentionInterval  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:               getEnv("PORT", "3001"),
		Env:                normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AcceptedMediaTypes: splitAndTrim(getEnv("ACCEPTED_MEDIA_TYPES", "application/pdf")),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 5<<20),
		StagingDir:         getEnv("STAGING_DIR", "./data/staging"),
		GeneratedDir:       getEnv("GENERATED_DIR", "./data/generated"),
		ModelTimeout:       getEnvSeconds("MODEL_TIMEOUT_SECONDS", 120*time.Second),
		RenderTimeout:      getEnvSeconds("RENDER_TIMEOUT_SECONDS", 60*time.Second),
		PageSize:           getEnv("PAGE_SIZE", "A4"),
		PageMarginInches:   getEnvFloat("PAGE_MARGIN_INCHES", 0.8),
		RetentionMaxAge:    getEnvSeconds("RETENTION_MAX_AGE_SECONDS", 3600*time.Second),
		RetentionInterval:  getEnvSeconds("RETENTION_SWEEP_SECONDS", 300*time.Second),
	}
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return time.Duration(parsed) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
