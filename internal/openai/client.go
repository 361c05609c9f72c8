// Package openai sends image prompts to the OpenAI chat completions API.
// Images travel as data URIs inside a single user message.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"visionchat/internal/chat"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4-vision-preview"
	DefaultMaxTokens = 512
)

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int64
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	client    openai.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Client{
		client:    openai.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func Factory(opts Options) chat.Factory {
	return func(apiKey string) chat.Vision {
		o := opts
		o.APIKey = apiKey
		return New(o)
	}
}

// SendWithImages always sends the text entry first, even when the prompt is
// empty, followed by one image_url entry per attachment.
func (c *Client) SendWithImages(ctx context.Context, prompt string, images []chat.Attachment) (string, error) {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+1)
	parts = append(parts, openai.TextContentPart(prompt))
	for _, img := range images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: img.DataURI(),
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model:     c.model,
		Messages:  []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		MaxTokens: openai.Int(c.maxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			body := apiErr.RawJSON()
			if body == "" {
				body = apiErr.Error()
			}
			return "", &chat.Error{
				Kind:     chat.KindUpstreamHTTP,
				Provider: chat.ProviderOpenAI,
				Status:   apiErr.StatusCode,
				Body:     body,
			}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn("openai returned no choices", "model", c.model)
		return chat.NoResponseText, nil
	}
	return resp.Choices[0].Message.Content, nil
}
