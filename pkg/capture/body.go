package capture

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// interpretRequestBody converts raw request body bytes to the
// semi-structured value that gets logged. JSON bodies are decoded so
// sanitization can walk their fields, form bodies become a keyed map, text
// stays a string, and anything binary is replaced by a sentinel.
func interpretRequestBody(raw []byte, contentType, method string) any {
	if len(raw) == 0 {
		return nil
	}
	if isJSONContentType(contentType) {
		return decodeJSONBody(raw)
	}
	if isFormContentType(contentType) && isMutatingMethod(method) {
		return decodeFormBody(raw)
	}
	if isTextContentType(contentType) {
		return string(raw)
	}
	return BodyBinary
}

// interpretBody converts raw response body bytes to the logged value.
func interpretBody(raw []byte, contentType string) any {
	if len(raw) == 0 {
		return nil
	}
	if isJSONContentType(contentType) {
		return decodeJSONBody(raw)
	}
	if isTextContentType(contentType) {
		return string(raw)
	}
	return BodyBinary
}

// decodeJSONBody parses a declared-JSON body. A body that fails to parse
// (malformed, or clipped by the capture buffer) is logged as a marked raw
// string instead; the sanitizer's truncation keeps it bounded.
func decodeJSONBody(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		if !utf8.Valid(raw) {
			return BodyBinary
		}
		return BodyNonJSONNote + string(raw)
	}
	return v
}

// decodeFormBody parses a urlencoded form into a keyed map. Single-valued
// fields collapse to plain strings.
func decodeFormBody(raw []byte) any {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return string(raw)
	}
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
		} else {
			items := make([]any, len(vs))
			for i, v := range vs {
				items[i] = v
			}
			out[k] = items
		}
	}
	return out
}

func isJSONContentType(ct string) bool {
	return strings.Contains(ct, "/json") || strings.Contains(ct, "+json")
}

func isFormContentType(ct string) bool {
	return strings.Contains(ct, "application/x-www-form-urlencoded")
}

func isTextContentType(ct string) bool {
	return strings.Contains(ct, "text/") ||
		strings.Contains(ct, "html") ||
		strings.Contains(ct, "xml")
}

func isMutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
