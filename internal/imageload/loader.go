package imageload

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"visionchat/internal/chat"
)

const DefaultMaxBytes = 10 << 20

type Options struct {
	MaxBytes int64
}

type Loader struct {
	maxBytes int64
}

func New(opts Options) *Loader {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{maxBytes: maxBytes}
}

// GuessMimeType maps the file extension to a MIME type without touching the
// file. Parameters such as charset are dropped.
func GuessMimeType(path string) string {
	return stripParams(mime.TypeByExtension(strings.ToLower(filepath.Ext(path))))
}

func stripParams(mimeType string) string {
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.TrimSpace(mimeType)
}

// Load reads an image file into an attachment. Non-image extensions fail
// before the file is opened. The content must sniff as an image; when it
// disagrees with the extension the sniffed type wins.
func (l *Loader) Load(path string) (chat.Attachment, error) {
	mimeType := GuessMimeType(path)
	if !chat.IsImageMimeType(mimeType) {
		return chat.Attachment{}, &chat.Error{Kind: chat.KindUnsupportedMediaType, MimeType: mimeType}
	}

	f, err := os.Open(path)
	if err != nil {
		return chat.Attachment{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return chat.Attachment{}, fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > l.maxBytes {
		return chat.Attachment{}, &chat.Error{Kind: chat.KindAttachmentTooLarge, Size: info.Size(), Limit: l.maxBytes}
	}

	// The file may grow between stat and read.
	raw, err := io.ReadAll(io.LimitReader(f, l.maxBytes+1))
	if err != nil {
		return chat.Attachment{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(raw)) > l.maxBytes {
		return chat.Attachment{}, &chat.Error{Kind: chat.KindAttachmentTooLarge, Size: int64(len(raw)), Limit: l.maxBytes}
	}

	detected := mimetype.Detect(raw)
	if !chat.IsImageMimeType(detected.String()) {
		return chat.Attachment{}, &chat.Error{Kind: chat.KindUnsupportedMediaType, MimeType: detected.String()}
	}
	// A mislabelled file is sent with the type of its content.
	if !detected.Is(mimeType) {
		mimeType = stripParams(detected.String())
	}

	return chat.Attachment{
		ID:       uuid.NewString(),
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
		Size:     int64(len(raw)),
	}, nil
}

// Encode returns the base64 payload and MIME type of an image file.
func (l *Loader) Encode(path string) (string, string, error) {
	att, err := l.Load(path)
	if err != nil {
		return "", "", err
	}
	return att.Data, att.MimeType, nil
}

// LoadAll loads paths concurrently and returns attachments in input order.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]chat.Attachment, error) {
	out := make([]chat.Attachment, len(paths))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			att, err := l.Load(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			out[i] = att
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
