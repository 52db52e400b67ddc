package config

import (
	"testing"
	"time"

	"srh_chat_go_backend/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "GEMINI_MODEL", "COMPLETION_CONCURRENCY", "COMPLETION_TIMEOUT", "COMPLETION_MAX_RETRIES",
		"COMPLETION_RPS", "CONTENT_FILTER_AI", "ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
		"GEO_PRIMARY_URL", "GEO_FALLBACK_URL", "GEO_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := NewConfig()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, services.DefaultCompletionOptions(), cfg.Completion)
	assert.False(t, cfg.FilterWithAI)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, services.DefaultGeoPrimaryURL, cfg.GeoPrimaryURL)
	assert.Equal(t, services.DefaultGeoTimeout, cfg.GeoTimeout)
}

func TestNewConfig_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("COMPLETION_CONCURRENCY", "3")
	t.Setenv("COMPLETION_TIMEOUT", "12s")
	t.Setenv("COMPLETION_RPS", "2.5")
	t.Setenv("CONTENT_FILTER_AI", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")

	cfg := NewConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(3), cfg.Completion.MaxConcurrency)
	assert.Equal(t, 12*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, 2.5, cfg.Completion.RequestsPerSecond)
	assert.True(t, cfg.FilterWithAI)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.AdminJWTSecret)
}

func TestNewConfig_IgnoresBadValues(t *testing.T) {
	t.Setenv("COMPLETION_TIMEOUT", "soon")
	t.Setenv("COMPLETION_MAX_RETRIES", "-1")
	t.Setenv("CONTENT_FILTER_AI", "maybe")

	cfg := NewConfig()

	def := services.DefaultCompletionOptions()
	assert.Equal(t, def.Timeout, cfg.Completion.Timeout)
	assert.Equal(t, def.MaxRetries, cfg.Completion.MaxRetries)
	assert.False(t, cfg.FilterWithAI)
}
