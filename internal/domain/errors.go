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
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeNoProvider           = "NO_PROVIDER_AVAILABLE"
	ErrCodeMalformedResponse    = "MALFORMED_PROVIDER_RESPONSE"
	ErrCodeRetrievalUnavailable = "RETRIEVAL_UNAVAILABLE"
)

// Validation errors
var (
	ErrEmptyQuestion         = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrInvalidTopK           = NewDomainError(ErrCodeValidation, "top_k must be greater than zero")
	ErrInvalidScoreThreshold = NewDomainError(ErrCodeValidation, "score_threshold must be between 0 and 1")
	ErrEmptyDocumentContent  = NewDomainError(ErrCodeValidation, "document content cannot be empty")
	ErrMissingUserScope      = NewDomainError(ErrCodeValidation, "user_id is required")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// Generation errors
var (
	// ErrRateLimited marks a provider 429. The gateway retries once against
	// the fallback provider before surfacing it.
	ErrRateLimited = NewDomainError(ErrCodeRateLimited, "provider rate limit exceeded")

	// ErrNoProviderAvailable means no generation provider is configured for
	// the requested tier. Fatal; never retried.
	ErrNoProviderAvailable = NewDomainError(ErrCodeNoProvider, "no generation provider available")

	// ErrMalformedProviderResponse means a provider returned a payload the
	// adapter could not map to text. Fatal; never retried.
	ErrMalformedProviderResponse = NewDomainError(ErrCodeMalformedResponse, "provider returned an unparseable response")

	// ErrRetrievalUnavailable marks an embedding or vector store failure. The
	// retriever recovers it locally as "no context found".
	ErrRetrievalUnavailable = NewDomainError(ErrCodeRetrievalUnavailable, "context retrieval backend unavailable")
)

// IsRateLimited reports whether err carries the RATE_LIMITED code anywhere in
// its chain. The fallback decision in the generation gateway keys off this.
func IsRateLimited(err error) bool {
	return hasCode(err, ErrCodeRateLimited)
}

func hasCode(err error, code string) bool {
	for err != nil {
		if de, ok := err.(*DomainError); ok && de.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
