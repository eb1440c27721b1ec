package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates an operation ran past its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates a quota or rate limit was hit.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a conflict with the current state of the resource.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Job pipeline errors. Every failed job carries exactly one of these.
const (
	// ErrCodeValidation indicates an unsupported URL or malformed request.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodePolicy indicates media exceeds the configured duration or size.
	ErrCodePolicy ErrorCode = "POLICY_VIOLATION"
	// ErrCodeDownload indicates audio extraction or download failed.
	ErrCodeDownload ErrorCode = "DOWNLOAD_FAILED"
	// ErrCodeBackendUnavailable indicates no transcription backend passed its availability check.
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// ErrCodeTranscription indicates the selected backend failed to transcribe.
	ErrCodeTranscription ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeUnexpected indicates any other condition raised inside a pipeline.
	ErrCodeUnexpected ErrorCode = "UNEXPECTED_ERROR"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeDatabaseError:      true,
	ErrCodeExternalService:    true,
	ErrCodeDownload:           true,
	ErrCodeBackendUnavailable: true,
	ErrCodeTranscription:      true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
