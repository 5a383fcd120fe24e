package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyNarrative     = errors.New("prompt is missing or empty")
	ErrMissingModel       = errors.New("model selection is missing")
	ErrTooManyFiles       = errors.New("too many files submitted")
	ErrRequestTooLarge    = errors.New("request exceeds maximum allowed size")
	ErrInvalidForm        = errors.New("request body is not a valid form")
	ErrFileEmpty          = errors.New("file is empty")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrModelConfig        = errors.New("model configuration error")
	ErrModelInvocation    = errors.New("model invocation failed")
	ErrStorage            = errors.New("blob storage error")
	ErrInvalidLocation    = errors.New("invalid storage location")
	ErrPresignUnsupported = errors.New("presigned URLs not supported by storage")
)

// StorageError signals a transport or permission failure talking to the blob
// store. It is always file-scoped.
type StorageError struct {
	Op       string
	Location string
	Err      error
}

func (e *StorageError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Location, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) true for any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ModelConfigError signals that the selected model identity cannot be used.
// Unknown is true when the identity is not mapped at all, which is a client
// mistake; otherwise the identity is mapped but misconfigured.
type ModelConfigError struct {
	Model   string
	Reason  string
	Unknown bool
}

func (e *ModelConfigError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("invalid model key: %s", e.Model)
	}
	return fmt.Sprintf("model %s is not configured: %s", e.Model, e.Reason)
}

func (e *ModelConfigError) Is(target error) bool { return target == ErrModelConfig }

// ModelInvocationError signals that a correctly formed remote call failed.
type ModelInvocationError struct {
	Model      string
	Err        error
	RetryAfter time.Duration
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("invoking model %s: %v", e.Model, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

func (e *ModelInvocationError) Is(target error) bool { return target == ErrModelInvocation }

// Detail returns a message safe to show to API callers.
func (e *ModelInvocationError) Detail() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("model %s is rate limited; retry after %s", e.Model, e.RetryAfter)
	}
	var d interface{ PublicDetail() string }
	if errors.As(e.Err, &d) {
		return fmt.Sprintf("model %s: %s", e.Model, d.PublicDetail())
	}
	return fmt.Sprintf("model %s did not return a usable response", e.Model)
}
