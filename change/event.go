package change

import (
	"encoding/json"
	"fmt"
)

// Kind tags the variant of an Event.
type Kind uint8

const (
	KindAdd Kind = iota + 1
	KindRemove
	KindReplace
	KindReset
)

var kindNames = map[Kind]string{
	KindAdd:     "add",
	KindRemove:  "remove",
	KindReplace: "replace",
	KindReset:   "reset",
}

// String returns the lower-case wire name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("change: unknown kind %d", uint8(k))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts a wire name ("add", "remove", "replace", "reset") to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("change: unknown kind %q", s)
}

// Event describes one incremental edit to a list.
//
// Value holds the added or removed element, or the new element of a
// Replace; OldValue is only meaningful for Replace.
type Event[T any] struct {
	Kind     Kind
	Index    int
	Value    T
	OldValue T
}

// Add returns an insertion of value at index (index refers to the list after insertion).
func Add[T any](index int, value T) Event[T] {
	return Event[T]{Kind: KindAdd, Index: index, Value: value}
}

// Remove returns a removal of value from index (index refers to the list before removal).
func Remove[T any](index int, value T) Event[T] {
	return Event[T]{Kind: KindRemove, Index: index, Value: value}
}

// Replace returns an in-place replacement of oldValue by newValue at index.
func Replace[T any](index int, oldValue, newValue T) Event[T] {
	return Event[T]{Kind: KindReplace, Index: index, Value: newValue, OldValue: oldValue}
}

// Reset returns an event discarding all prior list state.
func Reset[T any]() Event[T] {
	return Event[T]{Kind: KindReset}
}

// String renders the event for logs and test failures.
func (e Event[T]) String() string {
	switch e.Kind {
	case KindAdd:
		return fmt.Sprintf("add(%d, %v)", e.Index, e.Value)
	case KindRemove:
		return fmt.Sprintf("remove(%d, %v)", e.Index, e.Value)
	case KindReplace:
		return fmt.Sprintf("replace(%d, %v -> %v)", e.Index, e.OldValue, e.Value)
	case KindReset:
		return "reset"
	default:
		return e.Kind.String()
	}
}

// wireEvent is the JSON shape used at external boundaries such as SSE.
type wireEvent[T any] struct {
	Kind     Kind `json:"kind"`
	Index    int  `json:"index"`
	Value    *T   `json:"value,omitempty"`
	OldValue *T   `json:"old_value,omitempty"`
}

// MarshalJSON encodes the event as {"kind","index","value","old_value"},
// omitting fields that the kind does not use.
func (e Event[T]) MarshalJSON() ([]byte, error) {
	w := wireEvent[T]{Kind: e.Kind, Index: e.Index}
	switch e.Kind {
	case KindAdd, KindRemove:
		w.Value = &e.Value
	case KindReplace:
		w.Value = &e.Value
		w.OldValue = &e.OldValue
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the shape produced by MarshalJSON.
func (e *Event[T]) UnmarshalJSON(data []byte) error {
	var w wireEvent[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event[T]{Kind: w.Kind, Index: w.Index}
	if w.Value != nil {
		e.Value = *w.Value
	}
	if w.OldValue != nil {
		e.OldValue = *w.OldValue
	}
	return nil
}
