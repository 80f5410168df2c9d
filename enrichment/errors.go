package enrichment

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory is the normalised reason a lookup failed.
type ErrorCategory string

const (
	// The lookup took too long to respond
	ErrorTimeout ErrorCategory = "timeout"
	// The lookup returned a response that could not be understood
	ErrorBadData ErrorCategory = "bad_data"
	// The lookup could not be reached or returned a server error
	ErrorProviderOutage ErrorCategory = "provider_outage"
	// The lookup endpoint does not exist
	ErrorNotFound ErrorCategory = "not_found"
	// Too many requests were made
	ErrorRateLimited ErrorCategory = "rate_limited"
	// The caller gave up before the lookup returned
	ErrorCanceled ErrorCategory = "canceled"
	// Anything else
	ErrorInternal ErrorCategory = "internal"
)

var ErrDisabled = errors.New("enrichment is disabled")

// Error wraps a failed lookup with a normalised category.
type Error struct {
	Category   ErrorCategory
	Lookup     Lookup
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s lookup [%s]: %s: %v", e.Lookup, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s lookup [%s]: %s", e.Lookup, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, lookup Lookup, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Lookup:     lookup,
		Message:    message,
		Underlying: underlying,
	}
}

// Category extracts the error category from an error returned by a lookup.
func Category(err error) ErrorCategory {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ErrorInternal
}

func categoryForStatus(code int) ErrorCategory {
	switch {
	case code == http.StatusNotFound:
		return ErrorNotFound
	case code == http.StatusTooManyRequests:
		return ErrorRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrorTimeout
	case code >= http.StatusInternalServerError:
		return ErrorProviderOutage
	default:
		return ErrorBadData
	}
}
