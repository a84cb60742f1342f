package capture

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/getreqlog/reqlog/pkg/logging"
	"github.com/getreqlog/reqlog/pkg/sanitize"
)

// DefaultMaxBodyBytes bounds how much of a request or response body is
// buffered for capture.
const DefaultMaxBodyBytes = 64 * 1024

// Options configures the capture middleware. Zero-value fields fall back
// to documented defaults.
type Options struct {
	// Sink receives finalized records. Required; a nil sink disables
	// capture with a warning rather than panicking.
	Sink Sink

	// Profile gates capture per request. Defaults to AlwaysProfile.
	Profile Profile

	// Identity resolves the authenticated identity for the user field.
	// Defaults to ContextIdentityResolver.
	Identity IdentityResolver

	// SensitiveKeys marks header and body field names for redaction.
	SensitiveKeys sanitize.KeySet

	// TruncateLimit caps logged string values in code points. 0 disables.
	TruncateLimit int

	// CaptureRequestBody and CaptureResponseBody control whether bodies
	// are recorded or replaced with the not-logged sentinel.
	CaptureRequestBody  bool
	CaptureResponseBody bool

	// MaxBodyBytes bounds body buffering. Defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int

	// Logger is the operational side-channel. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Middleware captures request/response traffic flowing through a wrapped
// handler. All per-request state lives in locals threaded through the
// handler call, so concurrent requests never share mutable state.
type Middleware struct {
	next http.Handler
	opts Options
}

// NewMiddleware wraps next with request capture.
func NewMiddleware(next http.Handler, opts Options) *Middleware {
	if opts.Profile == nil {
		opts.Profile = AlwaysProfile{}
	}
	if opts.Identity == nil {
		opts.Identity = ContextIdentityResolver{}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Middleware{next: next, opts: opts}
}

// ServeHTTP implements http.Handler.
func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !m.shouldCapture(r) {
		m.next.ServeHTTP(w, r)
		return
	}

	start := time.Now()

	var reqBody []byte
	if m.opts.CaptureRequestBody && r.Body != nil {
		reqBody = m.bufferRequestBody(r)
	}

	cw := &captureWriter{
		ResponseWriter: w,
		status:         http.StatusOK,
		max:            m.opts.MaxBodyBytes,
	}

	m.next.ServeHTTP(cw, r)

	// Finalization must never disturb the response that was already sent.
	defer func() {
		if p := recover(); p != nil {
			m.opts.Logger.Error("request capture failed",
				"uri", r.RequestURI, "panic", p)
		}
	}()

	record := m.finalize(r, reqBody, cw, start, time.Now())

	if m.opts.Sink == nil {
		m.opts.Logger.Warn("no capture sink configured; dropping record",
			"uri", r.RequestURI)
		return
	}
	m.opts.Sink.Write(record)
}

// shouldCapture consults the profile, failing open: a panicking profile
// must not lose traffic.
func (m *Middleware) shouldCapture(r *http.Request) (capture bool) {
	defer func() {
		if p := recover(); p != nil {
			m.opts.Logger.Error("capture profile panicked; capturing request",
				"uri", r.RequestURI, "panic", p)
			capture = true
		}
	}()
	return m.opts.Profile.ShouldCapture(r)
}

// bufferRequestBody reads up to MaxBodyBytes of the request body and
// splices what was read back in front of the remainder, so downstream
// handlers see the stream untouched.
func (m *Middleware) bufferRequestBody(r *http.Request) []byte {
	buf := make([]byte, m.opts.MaxBodyBytes)
	n, _ := io.ReadFull(r.Body, buf)
	if n == 0 {
		return nil
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf[:n]), r.Body), r.Body}
	return buf[:n]
}

func (m *Middleware) finalize(r *http.Request, reqBody []byte, cw *captureWriter, start, end time.Time) *Record {
	keys := m.opts.SensitiveKeys
	limit := m.opts.TruncateLimit

	record := &Record{
		Request: RequestInfo{
			StartTime: FormatTime(start),
			Method:    r.Method,
			URI:       requestURI(r),
			URL:       fullURL(r),
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
			Headers:   sanitize.Value(r.Header, keys, limit),
		},
		Response: ResponseInfo{
			EndTime:    FormatTime(end),
			DurationMs: DurationMillis(end.Sub(start)),
			StatusCode: cw.status,
			StatusText: StatusText(cw.status),
			Headers:    sanitize.Value(cw.Header(), keys, limit),
		},
	}

	if m.opts.CaptureRequestBody {
		body := interpretRequestBody(reqBody, r.Header.Get("Content-Type"), r.Method)
		record.Request.Body = sanitize.Value(body, keys, limit)
	} else {
		record.Request.Body = BodyNotLogged
	}

	if m.opts.CaptureResponseBody {
		body := interpretBody(cw.body.Bytes(), cw.Header().Get("Content-Type"))
		record.Response.Body = sanitize.Value(body, keys, limit)
	} else {
		record.Response.Body = BodyNotLogged
	}

	record.User = m.resolveIdentity(r)

	return record
}

// resolveIdentity asks the configured resolver, degrading to "no identity"
// on failure.
func (m *Middleware) resolveIdentity(r *http.Request) (identity map[string]any) {
	defer func() {
		if p := recover(); p != nil {
			m.opts.Logger.Error("identity resolver panicked; recording no identity",
				"uri", r.RequestURI, "panic", p)
			identity = nil
		}
	}()

	id, err := m.opts.Identity.Resolve(r)
	if err != nil {
		m.opts.Logger.Error("identity resolver failed; recording no identity",
			"uri", r.RequestURI, "error", err)
		return nil
	}
	return id
}

func requestURI(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

func fullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + requestURI(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// captureWriter records the status code and up to max bytes of the body
// while delegating to the real ResponseWriter.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
	size   int
	max    int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.body.Len() < cw.max {
		remaining := cw.max - cw.body.Len()
		if len(b) <= remaining {
			cw.body.Write(b)
		} else {
			cw.body.Write(b[:remaining])
		}
	}
	cw.size += len(b)
	return cw.ResponseWriter.Write(b)
}
