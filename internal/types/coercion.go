// internal/types/coercion.go
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

/*
 * Leaf value coercion.
 *
 * The model keeps every leaf value as a single string. Editors are not
 * always that disciplined, so decoding is lenient:
 *   - string: passthrough
 *   - number: shortest decimal form ("25", "42.5")
 *   - bool: "true" / "false"
 *   - null or missing: ""
 *   - array of scalars: elements coerced then joined with "," (the
 *     "between" encoding)
 *
 * Objects and nested arrays have no string form and fail with
 * ErrValueCoercion.
 */

// ErrValueCoercion indicates a leaf value that has no string form.
var ErrValueCoercion = errors.New("rule value must be a string, number, boolean or list of those")

// CoerceValue converts a raw JSON value into the leaf's string representation.
func CoerceValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", ErrValueCoercion
	}

	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, elem := range list {
			s, err := coerceScalar(elem)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ","), nil
	}
	return coerceScalar(v)
}

// coerceScalar converts one decoded JSON scalar to text.
func coerceScalar(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case json.Number:
		// Integers keep their digits; floats use shortest representation
		if i, err := s.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		f, err := s.Float64()
		if err != nil {
			return "", ErrValueCoercion
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return "", ErrValueCoercion
	}
}
