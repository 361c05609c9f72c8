package chat

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindUnsupportedMediaType
	KindMissingCredential
	KindUpstreamHTTP
	KindEmptyInput
	KindAttachmentTooLarge
	KindUnsupportedProvider
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedMediaType:
		return "unsupported_media_type"
	case KindMissingCredential:
		return "missing_credential"
	case KindUpstreamHTTP:
		return "upstream_http"
	case KindEmptyInput:
		return "empty_input"
	case KindAttachmentTooLarge:
		return "attachment_too_large"
	case KindUnsupportedProvider:
		return "unsupported_provider"
	default:
		return "unknown"
	}
}

// Error is the classified failure returned by the loader, the adapters and
// the dispatcher. Only the fields relevant to Kind are set.
type Error struct {
	Kind     Kind
	Provider Provider

	MimeType string

	Status int
	Body   string

	Size  int64
	Limit int64
}

// Kind-only values for errors.Is.
var (
	ErrUnsupportedMediaType = &Error{Kind: KindUnsupportedMediaType}
	ErrMissingCredential    = &Error{Kind: KindMissingCredential}
	ErrUpstreamHTTP         = &Error{Kind: KindUpstreamHTTP}
	ErrEmptyInput           = &Error{Kind: KindEmptyInput}
	ErrAttachmentTooLarge   = &Error{Kind: KindAttachmentTooLarge}
	ErrUnsupportedProvider  = &Error{Kind: KindUnsupportedProvider}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnsupportedMediaType:
		mimeType := e.MimeType
		if mimeType == "" {
			mimeType = "unknown"
		}
		return fmt.Sprintf("Unsupported file type: %s", mimeType)
	case KindMissingCredential:
		return fmt.Sprintf("%s API key not configured", e.Provider.DisplayName())
	case KindUpstreamHTTP:
		prefix := "Error"
		if e.Provider != "" {
			prefix = e.Provider.DisplayName() + " error"
		}
		return fmt.Sprintf("%s: %d, %s", prefix, e.Status, strings.TrimSpace(e.Body))
	case KindEmptyInput:
		return "No message provided"
	case KindAttachmentTooLarge:
		return fmt.Sprintf("attachment too large: %d bytes (limit %d)", e.Size, e.Limit)
	case KindUnsupportedProvider:
		return fmt.Sprintf("unsupported provider %q", string(e.Provider))
	default:
		return "unknown error"
	}
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf reports the kind of a classified error anywhere in err's chain.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
