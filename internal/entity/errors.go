package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies extraction and review failures.
type ErrorKind string

const (
	KindAccessBlocked ErrorKind = "access_blocked"
	KindNotFound      ErrorKind = "not_found"
	KindTransient     ErrorKind = "transient"
	KindStructural    ErrorKind = "structural"
	KindGeneric       ErrorKind = "generic"
)

// Sentinels for errors.Is matching against an *AppError of the same kind.
var (
	ErrAccessBlocked = errors.New("access blocked")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
	ErrStructural    = errors.New("structural error")
	ErrExtraction    = errors.New("extraction failed")
)

// AccessBlockedSuggestions are offered whenever a source refuses automated access.
var AccessBlockedSuggestions = []string{
	"Copy the recipe text from the page and use manual entry",
	"Take a screenshot of the recipe and use image upload",
	"Try a different website that publishes the same recipe",
}

// AppError is a classified failure. Message is safe to show to callers;
// Err carries the underlying cause for logs.
type AppError struct {
	Kind        ErrorKind
	Message     string
	StatusCode  int
	Suggestions []string
	Err         error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches the kind sentinels, so errors.Is(err, ErrNotFound) works through
// any number of wrapping layers.
func (e *AppError) Is(target error) bool {
	switch target {
	case ErrAccessBlocked:
		return e.Kind == KindAccessBlocked
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrTransient:
		return e.Kind == KindTransient
	case ErrStructural:
		return e.Kind == KindStructural
	case ErrExtraction:
		return e.Kind == KindGeneric
	}
	return false
}

// Retryable reports whether retrying the same request may succeed.
func (e *AppError) Retryable() bool {
	return e.Kind == KindTransient
}

func NewAccessBlockedError(msg string, statusCode int, cause error) *AppError {
	return &AppError{
		Kind:        KindAccessBlocked,
		Message:     msg,
		StatusCode:  statusCode,
		Suggestions: append([]string(nil), AccessBlockedSuggestions...),
		Err:         cause,
	}
}

func NewNotFoundError(msg string, cause error) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg, Err: cause}
}

func NewTransientError(msg string, cause error) *AppError {
	return &AppError{Kind: KindTransient, Message: msg, Err: cause}
}

func NewStructuralError(msg string, cause error) *AppError {
	return &AppError{Kind: KindStructural, Message: msg, Err: cause}
}

func NewExtractionError(msg string, cause error) *AppError {
	return &AppError{Kind: KindGeneric, Message: msg, Err: cause}
}

// AsAppError returns the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf classifies err, defaulting to KindGeneric.
func KindOf(err error) ErrorKind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}
	return KindGeneric
}
