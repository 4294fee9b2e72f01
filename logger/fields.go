package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent    = "component"
	FieldTraceID      = "trace_id"
	FieldSpanID       = "span_id"
	FieldSubscription = "subscription_id"
	FieldOperator     = "operator"
	FieldState        = "state"
	FieldGroupKey     = "group_key"
	FieldView         = "view"
	FieldClientID     = "client_id"
	FieldError        = "error"
	FieldDuration     = "duration_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Debug("group created", logger.Fields("group_key", key, "size", 1))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operator that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperator: op,
		FieldError:    err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperator: op,
		FieldDuration: d.Milliseconds(),
	}
}
