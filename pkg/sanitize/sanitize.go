// Package sanitize redacts sensitive fields and truncates oversized strings
// in captured request/response data before it is persisted.
//
// Redaction is keyed on field names: a field is sensitive when its name
// case-insensitively contains any configured keyword. Matching values are
// replaced wholesale with the Sanitized sentinel; everything else is walked
// recursively. The walk is pure and never fails: values it cannot interpret
// pass through unchanged.
package sanitize

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
)

// Sentinels written in place of redacted or truncated data.
const (
	Sanitized       = "[SANITIZED]"
	TruncatedSuffix = "... [TRUNCATED]"
)

// maxDepth bounds recursion on pathological or self-referential input.
// Request/response data is acyclic by construction, so the cap is never
// reached in practice.
const maxDepth = 64

// KeySet is a set of case-insensitive substrings that mark a field name as
// sensitive. Construct with NewKeySet so members are pre-lowercased.
type KeySet []string

// NewKeySet builds a KeySet from the given keywords.
func NewKeySet(keywords ...string) KeySet {
	ks := make(KeySet, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		ks = append(ks, strings.ToLower(kw))
	}
	return ks
}

// Match reports whether the field name contains any keyword in the set,
// ignoring case.
func (ks KeySet) Match(field string) bool {
	lower := strings.ToLower(field)
	for _, kw := range ks {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Value sanitizes v: map values under sensitive keys are replaced with the
// Sanitized sentinel, strings longer than truncateLimit code points are
// truncated (truncateLimit 0 disables truncation), and the rule is applied
// recursively through maps and slices. Structs are converted to maps on a
// best-effort basis; anything unconvertible is returned unchanged.
func Value(v any, keys KeySet, truncateLimit int) any {
	return walk(v, keys, truncateLimit, 0)
}

func walk(v any, keys KeySet, limit, depth int) any {
	if depth > maxDepth {
		return v
	}

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return truncate(val, limit)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if keys.Match(k) {
				out[k] = Sanitized
			} else {
				out[k] = walk(item, keys, limit, depth+1)
			}
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if keys.Match(k) {
				out[k] = Sanitized
			} else {
				out[k] = truncate(item, limit)
			}
		}
		return out
	case http.Header:
		return sanitizeMulti(val, keys, limit)
	case map[string][]string:
		return sanitizeMulti(val, keys, limit)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = walk(item, keys, limit, depth+1)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = truncate(item, limit)
		}
		return out
	default:
		return walkOpaque(v, keys, limit, depth)
	}
}

// sanitizeMulti handles multi-valued header-style maps. A sensitive header
// keeps a single sanitized value rather than one per original entry.
func sanitizeMulti(val map[string][]string, keys KeySet, limit int) map[string]any {
	out := make(map[string]any, len(val))
	for k, items := range val {
		if keys.Match(k) {
			out[k] = []any{Sanitized}
			continue
		}
		vs := make([]any, len(items))
		for i, item := range items {
			vs[i] = truncate(item, limit)
		}
		out[k] = vs
	}
	return out
}

// walkOpaque attempts a best-effort conversion of struct-like values to a
// keyed map via a JSON round trip, then sanitizes the result. Scalars and
// unconvertible values pass through unchanged.
func walkOpaque(v any, keys KeySet, limit, depth int) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return v
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct, reflect.Map:
		data, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return v
		}
		return walk(m, keys, limit, depth+1)
	default:
		// Numbers, booleans and other scalars are left as is.
		return v
	}
}

// truncate shortens s to limit code points and appends the truncation
// suffix. A non-positive limit disables truncation.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + TruncatedSuffix
}
