package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of a request failure.
type ErrorType int

// Error type constants categorize failures for handling and retry logic.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransport indicates a network-level failure (connection
	// refused, timeout). Retryable with backoff by the caller.
	ErrorTypeTransport
	// ErrorTypeRateLimit indicates the venue rejected the request for
	// exceeding its rate limits. Retryable after the indicated delay.
	ErrorTypeRateLimit
	// ErrorTypeAuthConfig indicates missing or empty credentials,
	// detected locally before any network I/O.
	ErrorTypeAuthConfig
	// ErrorTypeUnauthorized indicates the venue rejected the supplied
	// credentials or signature. Not retryable without reconfiguration.
	ErrorTypeUnauthorized
	// ErrorTypeValidation indicates malformed request parameters.
	ErrorTypeValidation
	// ErrorTypeDecode indicates a 2xx body that failed to deserialize
	// into the expected schema. Signals contract drift with the venue.
	ErrorTypeDecode
	// ErrorTypeVenue indicates a venue-reported business error carrying
	// the raw code and message. Catch-all for unmapped codes.
	ErrorTypeVenue
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"TRANSPORT",
		"RATE_LIMIT",
		"AUTH_CONFIG",
		"UNAUTHORIZED",
		"VALIDATION",
		"DECODE",
		"VENUE",
	}[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrNoCredentials is returned when a private call is attempted
	// without credentials configured.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// APIError is the classified outcome of a failed call. Every non-2xx
// response, transport failure, and decode failure maps to exactly one
// ErrorType; venue error codes without a dedicated mapping keep their
// raw code and message under ErrorTypeVenue.
type APIError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status code, zero for local failures.
	StatusCode int `json:"status_code"`
	// VenueCode is the venue-specific error code, verbatim.
	VenueCode string `json:"venue_code,omitempty"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// RetryAfter is the delay hinted by the venue for rate-limit
	// errors, zero when no hint was given.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	// Venue identifies which venue produced this error.
	Venue string `json:"venue,omitempty"`
	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.VenueCode != "" {
		return fmt.Sprintf("[%s] %s (%d/%s): %s",
			e.Venue, e.Type, e.StatusCode, e.VenueCode, e.Message)
	}
	return fmt.Sprintf("[%s] %s (%d): %s",
		e.Venue, e.Type, e.StatusCode, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates an APIError with the given classification.
func NewAPIError(venue string, errorType ErrorType, statusCode int, message string) *APIError {
	return &APIError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Venue:      venue,
	}
}

// WithCode returns the error with the venue-specific code attached.
func (e *APIError) WithCode(code string) *APIError {
	e.VenueCode = code
	return e
}

// WithRetryAfter returns the error with a retry delay hint attached.
func (e *APIError) WithRetryAfter(d time.Duration) *APIError {
	e.RetryAfter = d
	return e
}

// WithCause returns the error wrapping an underlying cause.
func (e *APIError) WithCause(err error) *APIError {
	e.Err = err
	return e
}

func typeOf(err error) (ErrorType, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type, true
	}
	return ErrorTypeUnknown, false
}

// IsTransportError returns true for network-level failures, which are
// typically retryable.
func IsTransportError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeTransport
}

// IsRateLimitError returns true for rate-limit rejections. Callers
// should retry after the RetryAfter hint, when present.
func IsRateLimitError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeRateLimit
}

// IsAuthError returns true for credential failures, local or
// venue-reported. Not retryable without fixing configuration.
func IsAuthError(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrorTypeAuthConfig || t == ErrorTypeUnauthorized)
}

// IsValidationError returns true for malformed-request rejections.
func IsValidationError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeValidation
}

// IsDecodeError returns true when a well-formed HTTP response failed
// schema decoding, indicating venue contract drift.
func IsDecodeError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeDecode
}

// RetryAfter extracts the rate-limit delay hint, zero when absent.
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}
