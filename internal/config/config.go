package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"visionchat/internal/chat"
)

type Config struct {
	GeminiAPIKey  string
	OpenAIAPIKey  string
	TelegramToken string

	Provider chat.Provider

	LogLevel string
	Debug    bool

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	GeminiBaseURL         string
	GeminiAPIVersion      string
	GeminiModel           string
	GeminiTemperature     float64
	GeminiMaxOutputTokens int

	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIMaxTokens int

	MaxImageBytes int64

	WebAddr            string
	MediaGroupDebounce time.Duration
	MaxConcurrent      int
}

// Load reads the process environment. Keys are optional here; each entry
// point checks the ones it needs.
func Load() Config {
	cfg := Config{
		GeminiAPIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		OpenAIAPIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		TelegramToken:         strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		Provider:              chat.ParseProvider(getEnv("VISION_PROVIDER", string(chat.ProviderGemini))),
		LogLevel:              strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Debug:                 getEnvBool("DEBUG", false),
		PreferIPv4:            getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:           time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:        time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiAPIVersion:      getEnv("GEMINI_API_VERSION", "v1beta"),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiTemperature:     getEnvFloat("GEMINI_TEMPERATURE", 0.7),
		GeminiMaxOutputTokens: getEnvInt("GEMINI_MAX_OUTPUT_TOKENS", 512),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4-vision-preview"),
		OpenAIMaxTokens:       getEnvInt("OPENAI_MAX_TOKENS", 512),
		MaxImageBytes:         int64(getEnvInt("MAX_IMAGE_BYTES", 10<<20)),
		WebAddr:               getEnv("WEB_ADDR", ":8080"),
		MediaGroupDebounce:    time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:         getEnvInt("MAX_CONCURRENT", 4),
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.GeminiMaxOutputTokens < 1 {
		cfg.GeminiMaxOutputTokens = 512
	}
	if cfg.OpenAIMaxTokens < 1 {
		cfg.OpenAIMaxTokens = 512
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}

	return cfg
}

// Credentials returns the provider keys for the dispatcher. Empty keys are
// kept so the dispatcher can report which one is missing.
func (c Config) Credentials() map[chat.Provider]string {
	return map[chat.Provider]string{
		chat.ProviderGemini: c.GeminiAPIKey,
		chat.ProviderOpenAI: c.OpenAIAPIKey,
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
