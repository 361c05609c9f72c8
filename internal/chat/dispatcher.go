package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Vision sends a prompt plus images to a vision-capable chat provider and
// returns the first generated text.
type Vision interface {
	SendWithImages(ctx context.Context, prompt string, images []Attachment) (string, error)
}

// Factory builds a provider adapter bound to an API key.
type Factory func(apiKey string) Vision

// TextHandler answers messages that carry no images.
type TextHandler interface {
	HandleText(ctx context.Context, messages []Message, provider Provider) (string, error)
}

type TextHandlerFunc func(ctx context.Context, messages []Message, provider Provider) (string, error)

func (f TextHandlerFunc) HandleText(ctx context.Context, messages []Message, provider Provider) (string, error) {
	return f(ctx, messages, provider)
}

// EchoText stands in for the regular text chat backend.
var EchoText TextHandler = TextHandlerFunc(func(_ context.Context, messages []Message, _ Provider) (string, error) {
	return "Text-only response for: " + messages[len(messages)-1].Content, nil
})

type Options struct {
	Factories   map[Provider]Factory
	Credentials map[Provider]string
	TextHandler TextHandler
	// MaxAttachmentBytes caps the decoded size of every image; <= 0 disables.
	MaxAttachmentBytes int64
	Logger             *slog.Logger
}

type Dispatcher struct {
	factories   map[Provider]Factory
	credentials map[Provider]string
	text        TextHandler
	maxBytes    int64
	logger      *slog.Logger
}

func NewDispatcher(opts Options) *Dispatcher {
	text := opts.TextHandler
	if text == nil {
		text = EchoText
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	factories := make(map[Provider]Factory, len(opts.Factories))
	for p, f := range opts.Factories {
		factories[p] = f
	}
	credentials := make(map[Provider]string, len(opts.Credentials))
	for p, key := range opts.Credentials {
		credentials[p] = strings.TrimSpace(key)
	}

	return &Dispatcher{
		factories:   factories,
		credentials: credentials,
		text:        text,
		maxBytes:    opts.MaxAttachmentBytes,
		logger:      logger,
	}
}

// Dispatch answers the last of messages. Image-bearing messages go to the
// named provider, everything else to the text handler.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []Message, provider Provider) (string, error) {
	if len(messages) == 0 {
		return "", &Error{Kind: KindEmptyInput}
	}

	last := messages[len(messages)-1]
	if !last.HasImages() {
		d.logger.Debug("dispatch text-only", "provider", provider)
		return d.text.HandleText(ctx, messages, provider)
	}

	for _, img := range last.Images {
		if err := img.Validate(d.maxBytes); err != nil {
			return "", err
		}
	}

	factory, ok := d.factories[provider]
	if !ok {
		return "", &Error{Kind: KindUnsupportedProvider, Provider: provider}
	}

	apiKey := d.credentials[provider]
	if apiKey == "" {
		return "", &Error{Kind: KindMissingCredential, Provider: provider}
	}

	d.logger.Info("dispatch with images", "provider", provider, "images", len(last.Images))
	return factory(apiKey).SendWithImages(ctx, last.Content, last.Images)
}
