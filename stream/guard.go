package stream

import (
	rxerrors "github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/logger"
)

// recoverInto converts a panic in a user callback into an error. It must be
// deferred directly.
func recoverInto(op string, err *error) {
	if r := recover(); r != nil {
		appErr := rxerrors.Recovered(op, r)
		log().Warn("callback panicked", logger.ErrorFields(op, appErr))
		*err = appErr
	}
}

// callbackError wraps an error returned by a user callback. Errors that
// already carry a code pass through unchanged.
func callbackError(op string, err error) error {
	if err == nil || rxerrors.IsAppError(err) {
		return err
	}
	return rxerrors.CallbackFailed(op, err)
}

// call1 invokes fn with panic recovery and error wrapping.
func call1[A, R any](op string, fn func(A) (R, error), a A) (r R, err error) {
	defer recoverInto(op, &err)
	r, err = fn(a)
	return r, callbackError(op, err)
}

// checkedInc increments a counter, reporting false instead of wrapping.
func checkedInc(n uint64) (uint64, bool) {
	if n == ^uint64(0) {
		return n, false
	}
	return n + 1, true
}
