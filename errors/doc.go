// Package errors provides the structured error type used across rxkit.
//
// Every failure that reaches an observer's OnError is an *AppError carrying a
// machine-readable ErrorCode, so callers can branch on the kind of failure
// (an empty sequence, a second element for Single, a recovered callback
// panic) without string matching:
//
//	if errors.Is(err, rxerrors.ErrNoElements) { ... }
//	if rxerrors.IsCode(err, rxerrors.ErrCodeCallbackPanic) { ... }
package errors
