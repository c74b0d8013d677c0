package domain

import "fmt"

// DomainError carries a stable code that the HTTP layer maps to a status
// and a message safe to show in the page or the CLI.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeTooLarge      = "TOO_LARGE"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Query image selection and search.
var (
	ErrNoFileSelected = NewDomainError(ErrCodeValidation, "no image file selected")
	ErrEmptyFile      = NewDomainError(ErrCodeValidation, "image file is empty")
	ErrSearchInFlight = NewDomainError(ErrCodeConflict, "a search is already in progress")
)

// Result images fetched through the search backend.
var (
	ErrImagePathRequired  = NewDomainError(ErrCodeValidation, "path is required")
	ErrBackendMissing     = NewDomainError(ErrCodeUnavailable, "image backend not configured")
	ErrBackendUnavailable = NewDomainError(ErrCodeUpstream, "image backend unavailable")
)

var ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "session not found")

// Search history, only present when a database is configured.
var (
	ErrHistoryDisabled = NewDomainError(ErrCodeUnavailable, "search history is not configured")
	ErrInvalidCursor   = NewDomainError(ErrCodeValidation, "invalid cursor")
	ErrRecordNotFound  = NewDomainError(ErrCodeNotFound, "search record not found")
)
