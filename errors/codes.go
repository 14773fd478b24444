package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline stage errors
const (
	// ErrCodeSourceFailed indicates a producer failed to generate the next chunk.
	ErrCodeSourceFailed ErrorCode = "SOURCE_ERROR"
	// ErrCodeTransformFailed indicates a transform failed while processing or flushing.
	ErrCodeTransformFailed ErrorCode = "TRANSFORM_ERROR"
	// ErrCodeSinkFailed indicates a consumer failed to accept or finish a chunk.
	ErrCodeSinkFailed ErrorCode = "SINK_ERROR"
	// ErrCodeCancelled indicates the run was cancelled by its caller.
	ErrCodeCancelled ErrorCode = "PIPELINE_CANCELLED"
	// ErrCodeContractViolation indicates a stage was driven outside its lifecycle.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// Pipeline codes are never retryable: the controller does not retry on a
// stage's behalf.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
