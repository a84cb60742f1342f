// Package capture builds structured records of inbound request/response
// traffic. A Record is assembled in two phases (request receipt, response
// completion), sanitized, finalized exactly once, and handed to a Sink.
package capture

import (
	"math"
	"net/http"
	"time"
)

// TimeLayout is the wall-clock format used for start_time and end_time in
// persisted records: microsecond precision with a colon-separated UTC
// offset.
const TimeLayout = "2006-01-02 15:04:05.000000-07:00"

// Body sentinels used in place of actual body content.
const (
	BodyNotLogged   = "[NOT LOGGED]"
	BodyBinary      = "[BINARY OR UNSUPPORTED BODY]"
	BodyNonJSONNote = "[NON-JSON BODY] "
)

// Record is the unit of capture: one request/response pair plus an optional
// opaque user identity. Immutable once finalized.
type Record struct {
	Request  RequestInfo    `json:"request"`
	Response ResponseInfo   `json:"response"`
	User     map[string]any `json:"user,omitempty"`
}

// RequestInfo holds the request half of a record. Headers and Body carry
// sanitized semi-structured data, so they are deliberately untyped.
type RequestInfo struct {
	StartTime string `json:"start_time"`
	Method    string `json:"method"`
	URI       string `json:"uri"`
	URL       string `json:"url"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	Headers   any    `json:"headers,omitempty"`
	Body      any    `json:"body,omitempty"`
}

// ResponseInfo holds the response half of a record.
type ResponseInfo struct {
	EndTime    string  `json:"end_time"`
	DurationMs float64 `json:"duration_ms"`
	StatusCode int     `json:"status_code"`
	StatusText string  `json:"status_text"`
	Headers    any     `json:"headers,omitempty"`
	Body       any     `json:"body,omitempty"`
}

// StartedAt parses the record's request start time. Records decoded from a
// queue payload or a log artifact only carry the formatted string, so this
// is the writer's source of truth for path resolution. Returns the zero
// time if the string is absent or malformed.
func (r *Record) StartedAt() time.Time {
	t, err := time.Parse(TimeLayout, r.Request.StartTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatTime renders t in the record wall-clock format.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// DurationMillis converts an elapsed duration to milliseconds rounded to
// three decimal places, clamped to zero.
func DurationMillis(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*1000) / 1000
}

// StatusText returns the standard reason phrase for an HTTP status code,
// or "Unknown" for codes outside the registered set.
func StatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Unknown"
}

// Sink consumes finalized records. Implementations must never propagate
// failures to the request path: a sink that cannot persist a record reports
// the problem on its operational logger and drops the record.
type Sink interface {
	Write(record *Record)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(record *Record)

// Write calls f.
func (f SinkFunc) Write(record *Record) { f(record) }
