package chat

import (
	"fmt"
	"strings"
)

// NoResponseText is returned by adapters when the provider answered
// successfully but produced no candidate text.
const NoResponseText = "No response generated"

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// ParseProvider normalizes a provider name. Unknown names are returned as is
// so the dispatcher can report them.
func ParseProvider(name string) Provider {
	return Provider(strings.ToLower(strings.TrimSpace(name)))
}

func (p Provider) DisplayName() string {
	switch p {
	case ProviderGemini:
		return "Gemini"
	case ProviderOpenAI:
		return "OpenAI"
	default:
		return string(p)
	}
}

// Attachment is an image carried inline with a message. Data is plain
// base64 without a data URI prefix.
type Attachment struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
	Size     int64  `json:"size,omitempty"`
}

func (a Attachment) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", a.MimeType, a.Data)
}

// Validate checks the image invariant and, when maxBytes > 0, the decoded
// size of the payload.
func (a Attachment) Validate(maxBytes int64) error {
	if !IsImageMimeType(a.MimeType) {
		return &Error{Kind: KindUnsupportedMediaType, MimeType: a.MimeType}
	}
	if maxBytes > 0 {
		if size := decodedLen(a.Data); size > maxBytes {
			return &Error{Kind: KindAttachmentTooLarge, Size: size, Limit: maxBytes}
		}
	}
	return nil
}

func IsImageMimeType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

func decodedLen(data string) int64 {
	n := int64(len(data))
	pad := int64(len(data) - len(strings.TrimRight(data, "=")))
	return max(n/4*3-pad, 0)
}

type Message struct {
	Role    string       `json:"role,omitempty"`
	Content string       `json:"content"`
	Images  []Attachment `json:"images,omitempty"`
}

func (m Message) HasImages() bool {
	return len(m.Images) > 0
}
