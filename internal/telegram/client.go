package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visionchat/internal/chat"
)

// maxMessageBytes is Telegram's limit for a single text message.
const maxMessageBytes = 4096

type Options struct {
	Token         string
	HTTPClient    *http.Client
	Logger        *slog.Logger
	Debug         bool
	MaxImageBytes int64
}

type Client struct {
	bot           *tgbotapi.BotAPI
	httpClient    *http.Client
	logger        *slog.Logger
	maxImageBytes int64
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, tgbotapi.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		bot:           bot,
		httpClient:    opts.HTTPClient,
		logger:        logger,
		maxImageBytes: opts.MaxImageBytes,
	}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

type Update = tgbotapi.Update

type UpdatesOptions struct {
	Timeout time.Duration
}

func (c *Client) Updates(opts UpdatesOptions) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	if opts.Timeout > 0 {
		u.Timeout = int(opts.Timeout.Seconds())
	} else {
		u.Timeout = 30
	}
	return c.bot.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *Client) SendTyping(chatID int64) {
	_, _ = c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

func (c *Client) SendText(chatID int64, text string) error {
	for _, p := range splitByBytes(text, maxMessageBytes) {
		if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, p)); err != nil {
			return err
		}
	}
	return nil
}

// DownloadImage fetches a photo by file ID and returns it as an attachment.
func (c *Client) DownloadImage(ctx context.Context, fileID string) (chat.Attachment, error) {
	fileURL, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return chat.Attachment{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return chat.Attachment{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chat.Attachment{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return chat.Attachment{}, fmt.Errorf("telegram file download %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	att, err := readAttachment(resp.Body, c.maxImageBytes)
	if err != nil {
		return chat.Attachment{}, err
	}
	att.ID = fileID
	att.Name = path.Base(req.URL.Path)
	return att, nil
}

// readAttachment reads at most maxBytes (when > 0) and sniffs the content
// type. Telegram serves every file as application/octet-stream, so the
// response header is not consulted.
func readAttachment(r io.Reader, maxBytes int64) (chat.Attachment, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return chat.Attachment{}, fmt.Errorf("read file: %w", err)
	}
	if maxBytes > 0 && int64(len(raw)) > maxBytes {
		return chat.Attachment{}, &chat.Error{Kind: chat.KindAttachmentTooLarge, Size: int64(len(raw)), Limit: maxBytes}
	}

	mimeType := mimetype.Detect(raw).String()
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	if !chat.IsImageMimeType(mimeType) {
		return chat.Attachment{}, &chat.Error{Kind: chat.KindUnsupportedMediaType, MimeType: mimeType}
	}

	return chat.Attachment{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
		Size:     int64(len(raw)),
	}, nil
}

func splitByBytes(text string, maxBytes int) []string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return []string{text}
	}

	var out []string
	var buf strings.Builder
	buf.Grow(maxBytes)

	for _, r := range text {
		if buf.Len() > 0 && buf.Len()+utf8.RuneLen(r) > maxBytes {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteRune(r)
	}

	if buf.Len() > 0 {
		out = append(out, buf.String())
	}

	return out
}
