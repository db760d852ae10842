package mirrorlai

import (
	"fmt"
	"net/http"
)

// TranslationError is the base error type for translation failures.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ProviderError indicates a translation backend or endpoint failure.
// A transport failure carries a Cause; a remote rejection carries the
// StatusCode that was returned.
type ProviderError struct {
	Message    string
	Cause      error
	StatusCode int  // HTTP status of a remote rejection, 0 for transport failures
	Retryable  bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	msg := "provider error: " + e.Message
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsRejection reports whether the endpoint answered with a non-success status.
func (e *ProviderError) IsRejection() bool {
	return e.StatusCode != 0
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a document processing failure (parse error, etc.).
type ProcessorError struct {
	Message     string
	Cause       error
	ContentType string // The type of content that failed to process
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.ContentType, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.ContentType, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// CountMismatchError indicates the endpoint returned a different number of
// translations than strings sent. Applying such a response would pair
// translations with the wrong sources, so the whole batch is discarded.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}
