package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"visionchat/internal/chat"
	"visionchat/internal/mediagroup"
)

const helpText = "📷 Vision chat bot\n\n" +
	"Send a photo (or an album) with a caption and I will ask the vision model about it.\n" +
	"Plain text messages get a text-only answer.\n\n" +
	"Commands:\n" +
	"/start - Show this message\n" +
	"/help - Show this message"

// Messenger is the part of the Telegram client the handler needs.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTyping(chatID int64)
	DownloadImage(ctx context.Context, fileID string) (chat.Attachment, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, messages []chat.Message, provider chat.Provider) (string, error)
}

type Options struct {
	Messenger  Messenger
	Dispatcher Dispatcher
	Provider   chat.Provider
	Logger     *slog.Logger
}

type Handler struct {
	tg         Messenger
	dispatcher Dispatcher
	provider   chat.Provider
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := opts.Provider
	if provider == "" {
		provider = chat.ProviderGemini
	}

	return &Handler{
		tg:         opts.Messenger,
		dispatcher: opts.Dispatcher,
		provider:   provider,
		logger:     logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(chatID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, msg)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.handleText(ctx, chatID, msg.Text)
	}

	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processPhotos(ctx, group.ChatID, group.Caption, group.FileIDs); err != nil {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(chatID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, text string) error {
	h.tg.SendTyping(chatID)
	return h.reply(ctx, chatID, chat.Message{Role: "user", Content: text})
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	// The last size is the largest.
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	if msg.MediaGroupID != "" && h.aggregator != nil {
		var userID int64
		if msg.From != nil {
			userID = msg.From.ID
		}
		h.aggregator.Add(mediagroup.Item{
			ChatID:  chatID,
			UserID:  userID,
			GroupID: msg.MediaGroupID,
			Caption: msg.Caption,
			FileID:  fileID,
		})
		return nil
	}

	return h.processPhotos(ctx, chatID, msg.Caption, []string{fileID})
}

func (h *Handler) processPhotos(ctx context.Context, chatID int64, caption string, fileIDs []string) error {
	h.tg.SendTyping(chatID)

	images := make([]chat.Attachment, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			att, err := h.tg.DownloadImage(egCtx, fileID)
			if err != nil {
				return err
			}
			images[i] = att
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, userMessage(err))
	}

	return h.reply(ctx, chatID, chat.Message{Role: "user", Content: caption, Images: images})
}

func (h *Handler) reply(ctx context.Context, chatID int64, msg chat.Message) error {
	text, err := h.dispatcher.Dispatch(ctx, []chat.Message{msg}, h.provider)
	if err != nil {
		h.logger.Error("dispatch failed", "chat_id", chatID, "provider", h.provider,
			"kind", chat.KindOf(err).String(), "err", err)
		return h.tg.SendText(chatID, userMessage(err))
	}
	return h.tg.SendText(chatID, text)
}

func userMessage(err error) string {
	var ce *chat.Error
	if !errors.As(err, &ce) {
		return "❌ Something went wrong. Please try again."
	}

	switch ce.Kind {
	case chat.KindUpstreamHTTP:
		return fmt.Sprintf("❌ The vision service returned an error (HTTP %d). Please try again later.", ce.Status)
	default:
		return "❌ " + ce.Error()
	}
}
