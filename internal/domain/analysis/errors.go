// internal/domain/analysis/errors.go

package analysis

import (
	"errors"
	"fmt"
)

// ErrNoResult is returned by stores when a username has never been analyzed.
var ErrNoResult = errors.New("no analysis result")

// Error kinds surfaced to API clients. Stable strings; clients branch on them.
const (
	KindValidation         = "validation_error"
	KindProfileNotFound    = "profile_not_found"
	KindProfilePrivate     = "profile_private"
	KindSourceRateLimited  = "source_rate_limited"
	KindSourceUnavailable  = "source_unavailable"
	KindAIServiceError     = "ai_service_error"
	KindAIExtractionFailed = "ai_extraction_failed"
	KindNotFound           = "not_found"
	KindPersistenceError   = "persistence_error"
	KindInternal           = "internal_error"
)

// Error is the typed failure crossing the orchestrator boundary. Transient
// marks failures worth retrying from the caller's side.
type Error struct {
	Kind      string
	Message   string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an abort-class error with the given kind.
func NewError(kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewTransientError builds a retryable error with the given kind.
func NewTransientError(kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Transient: true, Err: err}
}
