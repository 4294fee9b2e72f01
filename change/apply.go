package change

import (
	"slices"

	rxerrors "github.com/kbukum/rxkit/errors"
)

// Apply applies a single event to list and returns the updated list. The
// input slice may be modified in place. An index outside the valid range
// for the event kind yields an INDEX_OUT_OF_RANGE error and leaves list
// untouched.
func Apply[T any](list []T, e Event[T]) ([]T, error) {
	switch e.Kind {
	case KindAdd:
		if e.Index < 0 || e.Index > len(list) {
			return list, rxerrors.IndexOutOfRange(e.Index, len(list))
		}
		return slices.Insert(list, e.Index, e.Value), nil
	case KindRemove:
		if e.Index < 0 || e.Index >= len(list) {
			return list, rxerrors.IndexOutOfRange(e.Index, len(list))
		}
		return slices.Delete(list, e.Index, e.Index+1), nil
	case KindReplace:
		if e.Index < 0 || e.Index >= len(list) {
			return list, rxerrors.IndexOutOfRange(e.Index, len(list))
		}
		list[e.Index] = e.Value
		return list, nil
	case KindReset:
		clear(list)
		return list[:0], nil
	default:
		return list, rxerrors.InvalidInput("kind", "unknown change kind "+e.Kind.String())
	}
}

// Replay applies events in order to an empty list.
func Replay[T any](events []Event[T]) ([]T, error) {
	var list []T
	for _, e := range events {
		var err error
		if list, err = Apply(list, e); err != nil {
			return list, err
		}
	}
	return list, nil
}

// Snapshot returns the events that rebuild list from scratch: a Reset
// followed by one Add per element. Producers use it for full-state resend.
func Snapshot[T any](list []T) []Event[T] {
	events := make([]Event[T], 0, len(list)+1)
	events = append(events, Reset[T]())
	for i, v := range list {
		events = append(events, Add(i, v))
	}
	return events
}
