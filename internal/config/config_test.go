package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"visionchat/internal/chat"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "VISION_PROVIDER", "GEMINI_MODEL",
		"GEMINI_TEMPERATURE", "OPENAI_MAX_TOKENS", "MAX_IMAGE_BYTES", "HTTP_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, chat.ProviderGemini, cfg.Provider)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, 0.7, cfg.GeminiTemperature)
	assert.Equal(t, 512, cfg.GeminiMaxOutputTokens)
	assert.Equal(t, "gpt-4-vision-preview", cfg.OpenAIModel)
	assert.Equal(t, 512, cfg.OpenAIMaxTokens)
	assert.Equal(t, int64(10<<20), cfg.MaxImageBytes)
	assert.Equal(t, 180*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, map[chat.Provider]string{chat.ProviderGemini: "", chat.ProviderOpenAI: ""}, cfg.Credentials())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "  g-key ")
	t.Setenv("OPENAI_API_KEY", "sk-1")
	t.Setenv("VISION_PROVIDER", "OpenAI")
	t.Setenv("GEMINI_TEMPERATURE", "0.25")
	t.Setenv("OPENAI_MAX_TOKENS", "1024")
	t.Setenv("MAX_IMAGE_BYTES", "1000")
	t.Setenv("PREFER_IPV4", "false")

	cfg := Load()

	assert.Equal(t, chat.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "g-key", cfg.GeminiAPIKey)
	assert.Equal(t, 0.25, cfg.GeminiTemperature)
	assert.Equal(t, 1024, cfg.OpenAIMaxTokens)
	assert.Equal(t, int64(1000), cfg.MaxImageBytes)
	assert.False(t, cfg.PreferIPv4)
	assert.Equal(t, "sk-1", cfg.Credentials()[chat.ProviderOpenAI])
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("GEMINI_TEMPERATURE", "warm")
	t.Setenv("OPENAI_MAX_TOKENS", "-3")
	t.Setenv("MAX_CONCURRENT", "0")
	t.Setenv("DEBUG", "maybe")

	cfg := Load()

	assert.Equal(t, 0.7, cfg.GeminiTemperature)
	assert.Equal(t, 512, cfg.OpenAIMaxTokens)
	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.False(t, cfg.Debug)
}
