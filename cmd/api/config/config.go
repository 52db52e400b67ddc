package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"srh_chat_go_backend/internal/services"
)

type Config struct {
	Port string

	GeminiAPIKey string
	GeminiModel  string
	Completion   services.CompletionOptions

	FilterRulesPath string
	FilterWithAI    bool
	FilterTimeout   time.Duration

	AllowedOrigins  []string
	AdminJWTSecret  string
	LogLevel        string
	LogFormat       string
	GeoPrimaryURL   string
	GeoFallbackURL  string
	GeoTimeout      time.Duration
	BrokerBuffer    int
	ShutdownTimeout time.Duration
}

// NewConfig reads the environment, falling back to defaults for anything
// unset or unparsable. Database settings are read by database.OptionsFromEnv.
func NewConfig() *Config {
	completion := services.DefaultCompletionOptions()
	completion.MaxConcurrency = int64(envInt("COMPLETION_CONCURRENCY", int(completion.MaxConcurrency)))
	completion.Timeout = envDuration("COMPLETION_TIMEOUT", completion.Timeout)
	completion.MaxRetries = envInt("COMPLETION_MAX_RETRIES", completion.MaxRetries)
	completion.RequestsPerSecond = envFloat("COMPLETION_RPS", completion.RequestsPerSecond)

	return &Config{
		Port:            envString("PORT", "3000"),
		GeminiAPIKey:    os.Getenv("GOOGLE_AI_STUDIO_API_KEY"),
		GeminiModel:     envString("GEMINI_MODEL", "gemini-2.0-flash"),
		Completion:      completion,
		FilterRulesPath: os.Getenv("CONTENT_FILTER_RULES"),
		FilterWithAI:    envBool("CONTENT_FILTER_AI", false),
		FilterTimeout:   envDuration("CONTENT_FILTER_TIMEOUT", services.DefaultAIFilterTimeout),
		AllowedOrigins:  envList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		AdminJWTSecret:  os.Getenv("ADMIN_JWT_SECRET"),
		LogLevel:        envString("LOG_LEVEL", "info"),
		LogFormat:       envString("LOG_FORMAT", "json"),
		GeoPrimaryURL:   envString("GEO_PRIMARY_URL", services.DefaultGeoPrimaryURL),
		GeoFallbackURL:  envString("GEO_FALLBACK_URL", services.DefaultGeoFallbackURL),
		GeoTimeout:      envDuration("GEO_TIMEOUT", services.DefaultGeoTimeout),
		BrokerBuffer:    envInt("MONITOR_BUFFER", 64),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n >= 0 {
		return n
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil && f >= 0 {
		return f
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return b
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil && d > 0 {
		return d
	}
	return def
}

func envList(key string, def []string) []string {
	raw := os.Getenv(key)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
