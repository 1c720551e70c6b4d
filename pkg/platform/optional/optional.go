// Package optional models request fields that must distinguish "absent"
// from "explicitly null". Partial updates decode into Value[T] so a missing
// JSON key leaves a field untouched while null clears it.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value is a tri-state field: unset, set to null, or set to a value.
type Value[T any] struct {
	set   bool
	null  bool
	value T
}

// Some returns a set, non-null value.
func Some[T any](v T) Value[T] {
	return Value[T]{set: true, value: v}
}

// Null returns a set value that explicitly clears the field.
func Null[T any]() Value[T] {
	return Value[T]{set: true, null: true}
}

// IsSet reports whether the field was present in the payload.
func (v Value[T]) IsSet() bool { return v.set }

// IsNull reports whether the field was present and null.
func (v Value[T]) IsNull() bool { return v.set && v.null }

// Get returns the value and whether it is present and non-null.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.set && !v.null
}

// UnmarshalJSON is only invoked when the key is present.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.null = true
		var zero T
		v.value = zero
		return nil
	}
	v.null = false
	return json.Unmarshal(data, &v.value)
}

// MarshalJSON renders unset and null values as null.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.set || v.null {
		return []byte("null"), nil
	}
	return json.Marshal(v.value)
}
