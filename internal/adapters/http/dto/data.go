package dto

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	orderedmap "github.com/pb33f/ordered-map/v2"

	"github.com/jsamuelsen/go-exceptions-api/internal/exceptions"
)

// ValidationErrors is the "errors" member of a validation problem body.
// Keys keep the order in which they were first added.
type ValidationErrors struct {
	entries *orderedmap.OrderedMap[string, []string]
}

// NewValidationErrors creates an empty ValidationErrors.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{entries: orderedmap.New[string, []string]()}
}

// ValidationErrorsFrom normalizes a failure dataset. When a key repeats, the
// first occurrence wins.
func ValidationErrorsFrom(data exceptions.Data) *ValidationErrors {
	v := NewValidationErrors()
	for _, f := range data {
		v.Add(f.Key, normalizeValue(f.Value))
	}

	return v
}

// Add stores values under key unless key is already present.
// It reports whether the values were stored.
func (v *ValidationErrors) Add(key string, values []string) bool {
	if _, exists := v.entries.Get(key); exists {
		return false
	}

	if values == nil {
		values = []string{}
	}

	v.entries.Set(key, values)

	return true
}

// Get returns the values stored under key.
func (v *ValidationErrors) Get(key string) ([]string, bool) {
	return v.entries.Get(key)
}

// Keys returns the keys in insertion order.
func (v *ValidationErrors) Keys() []string {
	keys := make([]string, 0, v.entries.Len())
	for pair := v.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}

	return keys
}

// Len returns the number of keys.
func (v *ValidationErrors) Len() int {
	if v == nil || v.entries == nil {
		return 0
	}

	return v.entries.Len()
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (v *ValidationErrors) MarshalJSON() ([]byte, error) {
	if v.Len() == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	for pair := v.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(pair.Key)
		if err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", pair.Key, err)
		}

		values, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding values of %q: %w", pair.Key, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(values)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// normalizeValue turns a dataset value into the list of strings shown to
// clients:
//   - nil becomes an empty list
//   - a string (or []byte) becomes a one-element list
//   - a slice or array of strings is used as-is
//   - any other slice or array has each element JSON-encoded
//   - any other value is JSON-encoded into a one-element list
func normalizeValue(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case string:
		return []string{v}
	case []byte:
		return []string{string(v)}
	case []string:
		out := make([]string, len(v))
		copy(out, v)

		return out
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() { //nolint:exhaustive // everything else is encoded whole
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []string{}
		}

		out := make([]string, 0, rv.Len())
		stringElems := rv.Type().Elem().Kind() == reflect.String

		for i := range rv.Len() {
			elem := rv.Index(i)
			if stringElems {
				out = append(out, elem.String())
				continue
			}

			out = append(out, encodeValue(elem.Interface()))
		}

		return out

	default:
		return []string{encodeValue(value)}
	}
}

// encodeValue JSON-encodes v. Values the encoder rejects (channels,
// functions) fall back to their fmt representation.
func encodeValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(b)
}
