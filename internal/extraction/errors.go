package extraction

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image exceeds upload limit")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrUnreadableImage  = errors.New("file content does not match an image or PDF")
	ErrEmptyResponse    = errors.New("model returned no content")
	ErrNoJSON           = errors.New("model response is not JSON")
	ErrMissingAPIKey    = errors.New("missing GEMINI_API_KEY")
	ErrResponseBlocked  = errors.New("model blocked the request")
	errUnexpectedFormat = errors.New("unexpected response shape")
)

// Kind classifies extraction failures for the caller.
type Kind int

const (
	// KindInput: the upload itself is unusable; the model was never called.
	KindInput Kind = iota + 1
	// KindUnavailable: the model stayed unavailable after all retries.
	KindUnavailable
	// KindMalformed: the model answered with something that is not a receipt.
	KindMalformed
	// KindUpstream: any other model or transport failure.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindUnavailable:
		return "unavailable"
	case KindMalformed:
		return "malformed"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is returned by Service.Extract for every failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of an extraction error, or 0.
func KindOf(err error) Kind {
	var extractionErr *Error
	if errors.As(err, &extractionErr) {
		return extractionErr.Kind
	}
	return 0
}

// UserMessage returns the message shown to the user for err.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindInput:
		return "File struk tidak dapat dibaca. Gunakan foto JPG, PNG, WEBP, HEIC atau file PDF yang valid."
	case KindUnavailable:
		return "Layanan AI sedang sibuk. Silakan coba lagi dalam beberapa saat atau isi data secara manual."
	case KindMalformed:
		return "Struk tidak dapat dibaca dengan benar. Coba foto yang lebih jelas atau isi data secara manual."
	default:
		return "Terjadi kesalahan saat membaca struk. Silakan coba lagi."
	}
}
