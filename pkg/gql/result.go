// Package gql provides helpers for GraphQL query results and a client for the query endpoint.
package gql

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// XSSIPrefix guards JSON responses of the query endpoint against script inclusion.
const XSSIPrefix = ")]}'"

// StripXSSI removes the XSSI guard prefix and surrounding whitespace, if present.
func StripXSSI(text string) string {
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimPrefix(text, XSSIPrefix))
}

// ParseResult decodes a JSON object, as rendered by the query page or returned by the endpoint.
func ParseResult(text string) (map[string]any, error) {
	var res map[string]any
	if err := json.Unmarshal([]byte(StripXSSI(text)), &res); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("parse result: not a json object: %q", text)
	}
	return res, nil
}

// Criteria is a predicate over a decoded result document.
type Criteria func(actual map[string]any) bool

// Excuse returns criteria which accept the actual document when it equals expected after the
// value found at path in actual is copied into expected. path elements are map keys (string)
// or list indexes (int). expected is not modified. a path missing from either document never matches.
func Excuse(expected map[string]any, path ...any) Criteria {
	return func(actual map[string]any) bool {
		val, ok := Lookup(actual, path...)
		if !ok {
			return false
		}
		want := clone(expected).(map[string]any)
		if !assign(want, val, path...) {
			return false
		}
		return reflect.DeepEqual(normalize(want), normalize(actual))
	}
}

// Equal returns criteria which accept only a document structurally equal to expected.
func Equal(expected map[string]any) Criteria {
	return func(actual map[string]any) bool {
		return reflect.DeepEqual(normalize(expected), normalize(actual))
	}
}

// Lookup returns the value at path inside doc.
func Lookup(doc any, path ...any) (any, bool) {
	cur := doc
	for _, p := range path {
		switch key := p.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			if cur, ok = m[key]; !ok {
				return nil, false
			}
		case int:
			l, ok := cur.([]any)
			if !ok || key < 0 || key >= len(l) {
				return nil, false
			}
			cur = l[key]
		default:
			return nil, false
		}
	}
	return cur, true
}

// assign sets val at path inside doc, which must already have the containers along the path.
func assign(doc any, val any, path ...any) bool {
	if len(path) == 0 {
		return false
	}
	parent, ok := Lookup(doc, path[:len(path)-1]...)
	if !ok {
		return false
	}
	switch key := path[len(path)-1].(type) {
	case string:
		m, ok := parent.(map[string]any)
		if !ok {
			return false
		}
		if _, exists := m[key]; !exists {
			return false
		}
		m[key] = val
		return true
	case int:
		l, ok := parent.([]any)
		if !ok || key < 0 || key >= len(l) {
			return false
		}
		l[key] = val
		return true
	}
	return false
}

// clone deep-copies maps and slices of a decoded document.
func clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(val))
		for k, item := range val {
			res[k] = clone(item)
		}
		return res
	case []any:
		res := make([]any, len(val))
		for i, item := range val {
			res[i] = clone(item)
		}
		return res
	default:
		return v
	}
}

// normalize round-trips a document through json so literal and decoded values compare equal,
// e.g. int 1 and float64 1.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var res any
	if err := json.Unmarshal(data, &res); err != nil {
		return v
	}
	return res
}
