package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// ServiceUnavailable creates a new AppError for a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates a new AppError for an operation that ran past its deadline.
// The message names the operation and the limit, e.g. "Download timed out after 5m0s".
func Timeout(operation string, limit time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out after %s", operation, limit),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation, "limit": limit.String()},
	}
}

// RateLimited creates a new AppError for an exhausted quota.
func RateLimited(reason string) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: reason,
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Conflict creates a new AppError for a conflict with the current state of the resource.
func Conflict(reason string) *AppError {
	return &AppError{
		Code: ErrCodeConflict, Message: reason,
		HTTPStatus: http.StatusConflict, Retryable: false,
	}
}

// Validation creates a new AppError for a rejected request or URL.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeValidation, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// InvalidInput creates a validation error bound to a single field.
func InvalidInput(field, reason string) *AppError {
	return Validation(fmt.Sprintf("Invalid input: %s", reason)).WithDetail("field", field)
}

// Policy creates a new AppError for media that exceeds configured limits.
func Policy(message string) *AppError {
	return &AppError{
		Code: ErrCodePolicy, Message: message,
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
	}
}

// Download creates a new AppError for a failed audio extraction.
func Download(message string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDownload, Message: message,
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
	}
}

// BackendUnavailable creates a new AppError for a job that found no usable backend.
func BackendUnavailable() *AppError {
	return &AppError{
		Code: ErrCodeBackendUnavailable, Message: "No transcription backend available",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
	}
}

// TranscriptionFailed creates a new AppError wrapping a backend failure.
// The backend message is kept verbatim after the prefix.
func TranscriptionFailed(backend string, cause error) *AppError {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Code: ErrCodeTranscription, Message: "Transcription failed: " + msg,
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"backend": backend}, Cause: cause,
	}
}

// Unexpected creates a new AppError for any condition the pipeline did not classify.
func Unexpected(cause error) *AppError {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Code: ErrCodeUnexpected, Message: "Unexpected error: " + msg,
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// DatabaseError creates a new AppError for a database error.
func DatabaseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDatabaseError, Message: "A database error occurred. Please try again.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
	}
}

// ExternalServiceError creates a new AppError for an error from an external service.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error. Please try again.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}
