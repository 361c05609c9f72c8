// Package app wires configuration into the dispatcher and its adapters.
package app

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"visionchat/internal/chat"
	"visionchat/internal/config"
	"visionchat/internal/gemini"
	"visionchat/internal/httpclient"
	"visionchat/internal/openai"
)

func NewLogger(cfg config.Config) *slog.Logger {
	return newLogger(os.Stdout, cfg.LogLevel)
}

func newLogger(w io.Writer, levelName string) *slog.Logger {
	level := slog.LevelInfo
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func NewHTTPClient(cfg config.Config, logger *slog.Logger) *http.Client {
	return httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Logger:     logger,
	})
}

// NewDispatcher registers both providers. Keys come from cfg; a missing
// key surfaces as a MissingCredential error at dispatch time.
func NewDispatcher(cfg config.Config, httpClient *http.Client, logger *slog.Logger) *chat.Dispatcher {
	return chat.NewDispatcher(chat.Options{
		Factories: map[chat.Provider]chat.Factory{
			chat.ProviderGemini: gemini.Factory(gemini.Options{
				BaseURL:         cfg.GeminiBaseURL,
				APIVersion:      cfg.GeminiAPIVersion,
				Model:           cfg.GeminiModel,
				Temperature:     cfg.GeminiTemperature,
				MaxOutputTokens: cfg.GeminiMaxOutputTokens,
				HTTPClient:      httpClient,
				Logger:          logger,
			}),
			chat.ProviderOpenAI: openai.Factory(openai.Options{
				BaseURL:    cfg.OpenAIBaseURL,
				Model:      cfg.OpenAIModel,
				MaxTokens:  int64(cfg.OpenAIMaxTokens),
				HTTPClient: httpClient,
				Logger:     logger,
			}),
		},
		Credentials:        cfg.Credentials(),
		MaxAttachmentBytes: cfg.MaxImageBytes,
		Logger:             logger,
	})
}
