package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"visionchat/internal/chat"
)

const (
	DefaultBaseURL         = "https://generativelanguage.googleapis.com"
	DefaultAPIVersion      = "v1beta"
	DefaultModel           = "gemini-1.5-flash"
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 512
)

type Options struct {
	APIKey          string
	BaseURL         string
	APIVersion      string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

type Client struct {
	apiKey          string
	baseURL         string
	apiVersion      string
	model           string
	temperature     float64
	maxOutputTokens int
	httpClient      *http.Client
	logger          *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	maxOutputTokens := opts.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = DefaultMaxOutputTokens
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:          opts.APIKey,
		baseURL:         baseURL,
		apiVersion:      apiVersion,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		httpClient:      httpClient,
		logger:          logger,
	}
}

// Factory returns a chat.Factory that builds clients sharing opts but bound
// to the given key.
func Factory(opts Options) chat.Factory {
	return func(apiKey string) chat.Vision {
		o := opts
		o.APIKey = apiKey
		return New(o)
	}
}

// SendWithImages sends the prompt and images as inline data parts and
// returns the text of the first candidate.
func (c *Client) SendWithImages(ctx context.Context, prompt string, images []chat.Attachment) (string, error) {
	payload := c.buildRequest(prompt, images)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", &chat.Error{
			Kind:     chat.KindUpstreamHTTP,
			Provider: chat.ProviderGemini,
			Status:   httpResp.StatusCode,
			Body:     string(rawBody),
		}
	}

	return c.extractText(rawBody)
}

func (c *Client) endpoint() string {
	q := url.Values{}
	q.Set("key", c.apiKey)
	return fmt.Sprintf("%s/%s/models/%s:generateContent?%s", c.baseURL, c.apiVersion, c.model, q.Encode())
}

func (c *Client) buildRequest(prompt string, images []chat.Attachment) generateContentRequest {
	parts := make([]part, 0, len(images)+1)
	if strings.TrimSpace(prompt) != "" {
		parts = append(parts, part{Text: prompt})
	}
	for _, img := range images {
		parts = append(parts, part{InlineData: &blob{
			MimeType: img.MimeType,
			Data:     img.Data,
		}})
	}

	return generateContentRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
}

func (c *Client) extractText(rawBody []byte) (string, error) {
	if !gjson.ValidBytes(rawBody) {
		return "", errors.New("decode response: invalid json")
	}

	if gjson.GetBytes(rawBody, "candidates.#").Int() == 0 {
		c.logger.Warn("gemini returned no candidates", "model", c.model,
			"block_reason", gjson.GetBytes(rawBody, "promptFeedback.blockReason").String())
		return chat.NoResponseText, nil
	}

	text := gjson.GetBytes(rawBody, "candidates.0.content.parts.0.text")
	if !text.Exists() {
		c.logger.Warn("gemini candidate has no text", "model", c.model,
			"finish_reason", gjson.GetBytes(rawBody, "candidates.0.finishReason").String())
		return chat.NoResponseText, nil
	}
	return text.String(), nil
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}
