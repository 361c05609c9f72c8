package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"visionchat/internal/chat"
)

// maxBodyBytes bounds a chat request; images travel inline as base64.
const maxBodyBytes = 64 << 20

type Dispatcher interface {
	Dispatch(ctx context.Context, messages []chat.Message, provider chat.Provider) (string, error)
}

type Options struct {
	Dispatcher      Dispatcher
	DefaultProvider chat.Provider
	RequestTimeout  time.Duration
	Logger          *slog.Logger
}

type Server struct {
	dispatcher      Dispatcher
	defaultProvider chat.Provider
	timeout         time.Duration
	logger          *slog.Logger
}

// chatRequest mirrors the body the web front-end posts. Model, temperature
// and max_tokens are accepted for compatibility; generation settings come
// from server configuration.
type chatRequest struct {
	Messages    []chat.Message `json:"messages"`
	Model       string         `json:"model,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Provider    string         `json:"provider,omitempty"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	provider := opts.DefaultProvider
	if provider == "" {
		provider = chat.ProviderGemini
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	return &Server{
		dispatcher:      opts.Dispatcher,
		defaultProvider: provider,
		timeout:         timeout,
		logger:          logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	return withRequestID(withLogging(mux, s.logger))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeText(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}

	provider := s.defaultProvider
	if p := firstNonEmpty(r.URL.Query().Get("provider"), req.Provider); p != "" {
		provider = chat.ParseProvider(p)
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	reply, err := s.dispatcher.Dispatch(ctx, req.Messages, provider)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("chat dispatch failed", "provider", provider, "kind", chat.KindOf(err).String(), "err", err)
		}
		writeText(w, status, err.Error())
		return
	}

	writeText(w, http.StatusOK, reply)
}

func statusFor(err error) int {
	switch chat.KindOf(err) {
	case chat.KindEmptyInput, chat.KindUnsupportedProvider:
		return http.StatusBadRequest
	case chat.KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case chat.KindAttachmentTooLarge:
		return http.StatusRequestEntityTooLarge
	case chat.KindMissingCredential:
		return http.StatusServiceUnavailable
	case chat.KindUpstreamHTTP:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, text)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-Id", id)
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-Id"), "dur_ms", time.Since(start).Milliseconds())
	})
}
