package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Sequence precondition errors raised by terminal aggregators.
const (
	// ErrCodeNoElements indicates a seed-requiring aggregate completed empty.
	ErrCodeNoElements ErrorCode = "NO_ELEMENTS"
	// ErrCodeMoreThanOneElement indicates Single observed a second element.
	ErrCodeMoreThanOneElement ErrorCode = "MORE_THAN_ONE_ELEMENT"
)

// User callback errors
const (
	// ErrCodeCallbackFailed indicates a predicate, selector or accumulator returned an error.
	ErrCodeCallbackFailed ErrorCode = "CALLBACK_FAILED"
	// ErrCodeCallbackPanic indicates a user callback panicked and was recovered.
	ErrCodeCallbackPanic ErrorCode = "CALLBACK_PANIC"
)

// Protocol errors
const (
	// ErrCodeCounterOverflow indicates a checked skip/take/index counter overflowed.
	ErrCodeCounterOverflow ErrorCode = "COUNTER_OVERFLOW"
	// ErrCodeIndexOutOfRange indicates a change event referenced an invalid index.
	ErrCodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"
	// ErrCodeOverlappingNotification indicates an upstream emitted while an
	// asynchronous stage was still pending.
	ErrCodeOverlappingNotification ErrorCode = "OVERLAPPING_NOTIFICATION"
	// ErrCodeDisposed indicates an operation on an already disposed resource.
	ErrCodeDisposed ErrorCode = "DISPOSED"
)

// Validation and internal errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
