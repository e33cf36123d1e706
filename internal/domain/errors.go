package domain

import "fmt"

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
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeGateway       = "GATEWAY_ERROR"
	ErrCodeStore         = "STORE_ERROR"
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// ErrorKind extracts the taxonomy code from an error for telemetry. Errors
// outside the taxonomy report as INTERNAL_ERROR.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for e := err; e != nil; {
		if de, ok := e.(*DomainError); ok {
			return de.Code
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return ErrCodeInternalError
}

// Configuration errors (fatal at startup)
var (
	ErrMissingDatabaseURL = NewDomainError(ErrCodeConfiguration, "DATABASE_URL is required")
	ErrMissingAPIKey      = NewDomainError(ErrCodeConfiguration, "OPENAI_API_KEY is required")
	ErrOverlapTooLarge    = NewDomainError(ErrCodeConfiguration, "chunk overlap must be smaller than chunk size")
	ErrInvalidChunkSize   = NewDomainError(ErrCodeConfiguration, "chunk size must be positive")
)

// Validation errors
var (
	ErrEmptyQuestion = NewDomainError(ErrCodeValidation, "question must not be empty")
	ErrEmptySource   = NewDomainError(ErrCodeValidation, "source filename must not be empty")
)

// Not found errors
var (
	ErrSourceNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrNoArchive      = NewDomainError(ErrCodeNotFound, "document archive is not configured")
)

// NewGatewayError wraps an embedding/chat transport failure.
func NewGatewayError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGateway, message, err)
}

// NewStoreError wraps a vector-store operation failure.
func NewStoreError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStore, message, err)
}

// NewParseError wraps an unreadable source document unit.
func NewParseError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeParse, message, err)
}
