package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeNoResults               = "NO_RESULTS"
	ErrCodeArchiveOffline          = "ARCHIVE_OFFLINE"
	ErrCodeArchiveTimeout          = "ARCHIVE_TIMEOUT"
	ErrCodeArchiveUnexpectedStatus = "ARCHIVE_UNEXPECTED_STATUS"
	ErrCodeArchiveNetwork          = "ARCHIVE_NETWORK_ERROR"
	ErrCodeParse                   = "PARSE_ERROR"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// Input errors
var (
	ErrURLRequired = NewDomainError(ErrCodeValidation, "Please enter a URL to search.")
	ErrInvalidURL  = NewDomainError(ErrCodeValidation, invalidURLMessage)

	// ErrURLEmpty and ErrURLContainsWhitespace are normalization reasons;
	// callers surface them wrapped in ErrInvalidURL.
	ErrURLEmpty              = NewDomainError(ErrCodeValidation, "empty")
	ErrURLContainsWhitespace = NewDomainError(ErrCodeValidation, "containsWhitespace")
)

// Archive fetch errors
var (
	ErrArchiveOffline = NewDomainError(ErrCodeArchiveOffline, "Archive.org Wayback Machine is currently offline, please try again later.")
	ErrArchiveTimeout = NewDomainError(ErrCodeArchiveTimeout, "The connection to Archive.org Wayback Machine has timed out, please try again later.")

	// ErrRequestTimeout is our own deadline expiring, as opposed to a 504 from the archive
	ErrRequestTimeout = NewDomainError(ErrCodeArchiveTimeout, "Request timed out. Please try again later.")
)

// Result errors
var (
	ErrNoResultsForDomain = NewDomainError(ErrCodeNoResults, "No results found for this domain.")
	ErrNoResults          = NewDomainError(ErrCodeNoResults, "No results found.")
	ErrMalformedPayload   = NewDomainError(ErrCodeParse, "The archive returned an unexpected response.")
)

const (
	invalidURLMessage = "Invalid URL format."
	internalMessage   = "An unexpected error occurred."
)

// NewInvalidURLError wraps a normalization reason into the user-facing input error
func NewInvalidURLError(reason error) *DomainError {
	return NewDomainErrorWithCause(ErrInvalidURL.Code, ErrInvalidURL.Message, reason)
}

// NewArchiveStatusError reports a non-200 response from the archive index
func NewArchiveStatusError(statusCode int) *DomainError {
	return NewDomainError(ErrCodeArchiveUnexpectedStatus,
		fmt.Sprintf("The API request to archive.org returned a non-200 HTTP status code: %d", statusCode))
}

// NewArchiveNetworkError reports a transport-level fetch failure
func NewArchiveNetworkError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeArchiveNetwork,
		fmt.Sprintf("There was an error fetching the data: %v", err), err)
}

// NewMalformedPayloadError wraps a decode failure of the archive payload
func NewMalformedPayloadError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeParse, ErrMalformedPayload.Message, err)
}

// Is matches DomainErrors by code and message so that wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// CodeOf returns the DomainError code of err, or ErrCodeInternalError
func CodeOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeInternalError
}

// UserMessage returns the text safe to show to an end user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return internalMessage
}

// IsNoResults reports whether err is the "no results" outcome rather than a hard failure
func IsNoResults(err error) bool {
	return CodeOf(err) == ErrCodeNoResults
}
