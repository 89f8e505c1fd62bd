package services

import (
	"errors"
	"fmt"

	"github.com/kerbaras/mangadl/pkg/integrations"
)

var (
	ErrSessionActive     = errors.New("a download session is already active")
	ErrNoChapters        = errors.New("no chapters selected")
	ErrChapterOutOfRange = errors.New("chapter index out of range")
	ErrDuplicateChapter  = errors.New("chapter selected more than once")
	ErrCancelled         = errors.New("download cancelled")
)

// FetchError is a failed call to the remote source. Page is -1 for the
// chapter's page index.
type FetchError struct {
	Op        string
	ChapterID string
	Page      int
	Err       error
}

func (e *FetchError) Error() string {
	if e.Page >= 0 {
		return fmt.Sprintf("fetch %s %d of chapter %s: %v", e.Op, e.Page, e.ChapterID, e.Err)
	}
	return fmt.Sprintf("fetch %s of chapter %s: %v", e.Op, e.ChapterID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError rejects a StartDownload call. Err is one of the Err*
// sentinels.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return "invalid download request: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(sentinel error, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...), Err: sentinel}
}

type (
	EncodingError = integrations.EncodingError
	IOError       = integrations.IOError
)

// ErrorKind names the failure class of a chapter error for logs and history.
func ErrorKind(err error) string {
	var (
		fetchErr *FetchError
		encErr   *EncodingError
		ioErr    *IOError
		valErr   *ValidationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &encErr):
		return "encoding"
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &valErr):
		return "validation"
	default:
		return "internal"
	}
}
