package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

// AppError is the unified rxkit error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
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

// Is reports whether target is an *AppError with the same code, which makes
// the package sentinels usable with errors.Is.
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

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Sentinels for errors.Is. They carry only a code; do not mutate them.
var (
	ErrNoElements         = &AppError{Code: ErrCodeNoElements}
	ErrMoreThanOneElement = &AppError{Code: ErrCodeMoreThanOneElement}
	ErrCounterOverflow    = &AppError{Code: ErrCodeCounterOverflow}
	ErrDisposed           = &AppError{Code: ErrCodeDisposed}
)

// --- Constructors ---

// NoElements creates the error reported when a seed-requiring aggregate completes empty.
func NoElements() *AppError {
	return &AppError{Code: ErrCodeNoElements, Message: "sequence contains no elements"}
}

// MoreThanOneElement creates the error reported when Single sees a second value.
func MoreThanOneElement() *AppError {
	return &AppError{Code: ErrCodeMoreThanOneElement, Message: "sequence contains more than one element"}
}

// CallbackFailed wraps an error returned by a user callback of the named operator.
func CallbackFailed(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCallbackFailed, Message: fmt.Sprintf("%s callback failed", op),
		Details: map[string]any{"operator": op}, Cause: cause,
	}
}

// Recovered converts a recovered panic value into an AppError. The goroutine
// stack at the point of recovery is kept in Details["stack"].
func Recovered(op string, value any) *AppError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	err := &AppError{
		Code: ErrCodeCallbackPanic, Message: fmt.Sprintf("%s callback panicked: %v", op, value),
		Details: map[string]any{"operator": op, "value": value, "stack": string(buf[:n])},
	}
	if cause, ok := value.(error); ok {
		err.Cause = cause
	}
	return err
}

// CounterOverflow creates the error reported when a checked counter would wrap.
func CounterOverflow(op string) *AppError {
	return &AppError{
		Code: ErrCodeCounterOverflow, Message: fmt.Sprintf("%s counter overflow", op),
		Details: map[string]any{"operator": op},
	}
}

// IndexOutOfRange creates the error reported for a change event with an invalid index.
func IndexOutOfRange(index, length int) *AppError {
	return &AppError{
		Code: ErrCodeIndexOutOfRange, Message: fmt.Sprintf("index %d out of range [0,%d]", index, length),
		Details: map[string]any{"index": index, "length": length},
	}
}

// OverlappingNotification creates the error reported when an upstream emits
// while an asynchronous stage is still waiting for the previous item.
func OverlappingNotification(op string) *AppError {
	return &AppError{
		Code: ErrCodeOverlappingNotification, Message: fmt.Sprintf("%s received a notification while an asynchronous step was pending", op),
		Details: map[string]any{"operator": op},
	}
}

// Disposed creates the error reported when an operation targets a disposed resource.
func Disposed(resource string) *AppError {
	return &AppError{
		Code: ErrCodeDisposed, Message: fmt.Sprintf("%s has been disposed", resource),
		Details: map[string]any{"resource": resource},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// Internal creates a new AppError for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Cause: cause,
	}
}

// --- Inspection helpers ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is (or wraps) an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
