// Package writer owns the write path for capture records: destination
// selection (structured-log channel vs. artifact store), format selection
// (line-delimited JSON vs. text line), and append-vs-put semantics.
//
// Sinks never propagate failures to the request path. Anything that goes
// wrong while serializing or persisting a record is reported on the
// operational logger and the record is dropped; at-least-once local
// durability is best effort by design.
package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/getreqlog/reqlog/pkg/capture"
	"github.com/getreqlog/reqlog/pkg/logging"
	"github.com/getreqlog/reqlog/pkg/pathtemplate"
	"github.com/getreqlog/reqlog/pkg/store"
)

// Format selects the artifact serialization.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatLine Format = "line"
)

// ChannelEvent is the message attached to records forwarded to a
// structured-log channel.
const ChannelEvent = "http request log"

// appendExts are artifact extensions treated as shared, append-oriented
// files. Anything else (".json" with a {uuid} template, say) gets a
// dedicated file per record.
var appendExts = map[string]bool{
	".log":   true,
	".jsonl": true,
	".txt":   true,
}

// Config configures a Writer.
type Config struct {
	// Channel, when non-empty, names a registered structured-log channel
	// that takes priority over disk-based writing. An unknown name falls
	// back to the disk path with a diagnostic.
	Channel string

	// Store is the artifact store written to. DiskName only labels it in
	// diagnostics.
	Store    store.Store
	DiskName string

	// Template resolves the artifact path from the record's start time.
	Template pathtemplate.Template

	// Format selects json or line serialization. Defaults to json.
	Format Format

	// Logger is the operational side-channel. Defaults to a no-op logger.
	Logger *slog.Logger

	// Now supplies the clock; overridable in tests. Only used when a
	// record carries no parseable start time.
	Now func() time.Time
}

// Writer is the direct, synchronous sink: it serializes a record and
// persists it inline on the caller's goroutine.
type Writer struct {
	cfg Config
}

// New creates a direct writer.
func New(cfg Config) *Writer {
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if cfg.Template == "" {
		cfg.Template = pathtemplate.DefaultTemplate
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Writer{cfg: cfg}
}

// Write persists the record. It never panics and never returns an error:
// failures are logged and the record is dropped.
func (w *Writer) Write(record *capture.Record) {
	if record == nil {
		return
	}

	if w.cfg.Channel != "" {
		if w.writeChannel(record) {
			return
		}
		// Unknown channel name: fall back to disk with the diagnostic
		// already emitted.
	}

	w.writeDisk(record)
}

// writeChannel forwards the whole record as a single structured event.
// Returns false when the channel is not registered so the caller can fall
// back to disk.
func (w *Writer) writeChannel(record *capture.Record) (handled bool) {
	ch, ok := logging.Channel(w.cfg.Channel)
	if !ok {
		w.cfg.Logger.Warn("structured-log channel not registered; falling back to disk",
			"channel", w.cfg.Channel)
		return false
	}

	defer func() {
		if p := recover(); p != nil {
			w.cfg.Logger.Error("channel delivery failed",
				"channel", w.cfg.Channel, "panic", p)
			handled = true
		}
	}()

	ch.Info(ChannelEvent, slog.Any("record", record))
	return true
}

func (w *Writer) writeDisk(record *capture.Record) {
	if w.cfg.Store == nil {
		w.cfg.Logger.Warn("artifact store not configured; dropping record",
			"disk", w.cfg.DiskName)
		return
	}

	start := record.StartedAt()
	if start.IsZero() {
		w.cfg.Logger.Warn("record has no parseable start time; using current time",
			"start_time", record.Request.StartTime)
		start = w.cfg.Now()
	}

	target := w.cfg.Template.Resolve(start)

	data, err := Serialize(record, w.cfg.Format)
	if err != nil {
		w.cfg.Logger.Error("failed to serialize record",
			"disk", w.cfg.DiskName, "path", target, "error", err)
		return
	}

	if appendExts[path.Ext(target)] {
		err = w.cfg.Store.Append(target, data)
	} else {
		err = w.cfg.Store.Put(target, data)
	}
	if err != nil {
		w.cfg.Logger.Error("failed to write record to artifact store",
			"disk", w.cfg.DiskName, "path", target, "error", err)
	}
}

// Serialize renders a record in the given format, newline terminated.
func Serialize(record *capture.Record, format Format) ([]byte, error) {
	switch format {
	case FormatLine:
		return serializeLine(record), nil
	case FormatJSON, "":
		return serializeJSON(record)
	default:
		return nil, fmt.Errorf("writer: unsupported format %q", format)
	}
}

// serializeJSON renders one JSON object per line with HTML/slash escaping
// disabled, matching the persisted artifact contract.
func serializeJSON(record *capture.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// serializeLine renders the fixed human-readable summary:
// [start_time] METHOD URI - STATUS STATUS_TEXT (DURATIONms)
func serializeLine(record *capture.Record) []byte {
	return []byte(fmt.Sprintf("[%s] %s %s - %d %s (%sms)\n",
		record.Request.StartTime,
		record.Request.Method,
		record.Request.URI,
		record.Response.StatusCode,
		record.Response.StatusText,
		strconv.FormatFloat(record.Response.DurationMs, 'f', -1, 64),
	))
}

var _ capture.Sink = (*Writer)(nil)
