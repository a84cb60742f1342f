// Package query recovers previously written capture records. Given a path
// template and an optional date constraint it reconstructs the set of
// matching artifacts on a store, streams their line-delimited JSON, and
// yields the aggregated record set.
//
// Records are collected in file order and within-file line order, but no
// ordering is imposed across files: concatenation order over multiple
// matched artifacts follows the store's listing order and is
// implementation defined. Known limitation, inherited deliberately.
package query

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"github.com/getreqlog/reqlog/pkg/capture"
	"github.com/getreqlog/reqlog/pkg/logging"
	"github.com/getreqlog/reqlog/pkg/pathtemplate"
	"github.com/getreqlog/reqlog/pkg/store"
	"github.com/getreqlog/reqlog/pkg/writer"
)

// maxLineBytes bounds a single scanned artifact line.
const maxLineBytes = 4 * 1024 * 1024

// artifactExts are extensions recognized as single log artifacts when a
// resolved pattern contains no wildcards.
var artifactExts = map[string]bool{
	".log":   true,
	".json":  true,
	".jsonl": true,
	".txt":   true,
}

// ConfigError reports invalid query configuration. It is raised eagerly by
// the setter that received the bad value and surfaced on the next
// execution call.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "query config: " + e.Field + ": " + e.Message
}

// Builder configures and executes a log query.
type Builder struct {
	disk     store.Store
	template pathtemplate.Template
	format   writer.Format
	date     time.Time
	hasDate  bool
	logger   *slog.Logger
	err      error
}

// New creates a query builder with the default template and json format.
func New() *Builder {
	return &Builder{
		template: pathtemplate.DefaultTemplate,
		format:   writer.FormatJSON,
		logger:   logging.Nop(),
	}
}

// Disk sets the artifact store to query.
func (b *Builder) Disk(s store.Store) *Builder {
	b.disk = s
	return b
}

// PathTemplate sets the naming pattern the artifacts were written under.
func (b *Builder) PathTemplate(t pathtemplate.Template) *Builder {
	b.template = t
	return b
}

// Format sets the artifact format to parse. Only line-delimited JSON is
// queryable; anything else is a configuration error.
func (b *Builder) Format(format string) *Builder {
	if !strings.EqualFold(format, string(writer.FormatJSON)) {
		b.fail(&ConfigError{Field: "format", Message: "unsupported format " + format + "; only json is queryable"})
		return b
	}
	b.format = writer.FormatJSON
	return b
}

// WhereDate constrains the query to artifacts for the given YYYY-MM-DD
// date. Invalid date strings are a configuration error.
func (b *Builder) WhereDate(date string) *Builder {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		b.fail(&ConfigError{Field: "date", Message: "invalid date " + date + ": " + err.Error()})
		return b
	}
	return b.WhereDateTime(t)
}

// WhereDateTime constrains the query to the given instant's calendar day.
func (b *Builder) WhereDateTime(t time.Time) *Builder {
	b.date = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	b.hasDate = true
	return b
}

// Logger sets the operational side-channel for scan diagnostics.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// All executes the query and returns every collected record.
func (b *Builder) All() ([]*capture.Record, error) {
	if err := b.check(); err != nil {
		return nil, err
	}

	var records []*capture.Record
	b.scan(func(line []byte) {
		var record capture.Record
		if err := json.Unmarshal(line, &record); err != nil {
			// Partial corruption of one record must not abort the scan.
			return
		}
		records = append(records, &record)
	})
	return records, nil
}

// First returns the first record in concatenation order, or nil when the
// query matches nothing.
func (b *Builder) First() (*capture.Record, error) {
	records, err := b.All()
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// Last returns the last record in concatenation order, or nil when the
// query matches nothing.
func (b *Builder) Last() (*capture.Record, error) {
	records, err := b.All()
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[len(records)-1], nil
}

// Count returns the number of records in the matched artifacts. Lines are
// validated without materializing records, which keeps counting large
// artifacts cheap.
func (b *Builder) Count() (int, error) {
	if err := b.check(); err != nil {
		return 0, err
	}

	var p fastjson.Parser
	count := 0
	b.scan(func(line []byte) {
		v, err := p.ParseBytes(line)
		if err != nil || v.Type() != fastjson.TypeObject {
			return
		}
		count++
	})
	return count, nil
}

func (b *Builder) check() error {
	if b.err != nil {
		return b.err
	}
	if b.disk == nil {
		return &ConfigError{Field: "disk", Message: "no artifact store configured"}
	}
	return nil
}

// scan streams every existing candidate artifact line by line, invoking
// visit for each non-blank line. Unreadable artifacts are skipped with a
// diagnostic; missing ones are zero matches.
func (b *Builder) scan(visit func(line []byte)) {
	for _, candidate := range b.resolveCandidates() {
		if !b.disk.Exists(candidate) {
			continue
		}
		rc, err := b.disk.Open(candidate)
		if err != nil {
			b.logger.Warn("skipping unreadable artifact", "path", candidate, "error", err)
			continue
		}

		scanner := bufio.NewScanner(rc)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			visit([]byte(line))
		}
		if err := scanner.Err(); err != nil {
			b.logger.Warn("artifact scan aborted", "path", candidate, "error", err)
		}
		rc.Close()
	}
}

// resolveCandidates reconstructs the artifact paths matching the template
// and date constraint. Store-level listing errors yield zero matches for
// that branch, never a crash.
func (b *Builder) resolveCandidates() []string {
	if !b.template.HasPlaceholders() {
		return []string{string(b.template)}
	}

	pattern := b.template.SearchPattern(b.date, b.hasDate)

	// Fully resolved single artifact: no wildcards left and a known
	// extension means the pattern is the path.
	if !strings.Contains(pattern, "*") && artifactExts[path.Ext(pattern)] {
		return []string{pattern}
	}

	dir := path.Dir(pattern)
	if dir == "." {
		dir = ""
	}

	var files []string
	var err error
	if strings.Contains(dir, "*") {
		// The directory portion itself is wildcarded; list recursively
		// from the deepest literal ancestor and glob-match full paths.
		files, err = b.disk.ListAllFiles(literalAncestor(dir))
	} else {
		files, err = b.disk.ListFiles(dir)
	}
	if err != nil {
		b.logger.Warn("artifact listing failed; treating as no matches",
			"pattern", pattern, "error", err)
		return nil
	}

	var matches []string
	for _, f := range files {
		if pathtemplate.Match(pattern, f) {
			matches = append(matches, f)
		}
	}
	return matches
}

// literalAncestor returns the deepest directory prefix containing no
// wildcard.
func literalAncestor(dir string) string {
	segments := strings.Split(dir, "/")
	var keep []string
	for _, seg := range segments {
		if strings.Contains(seg, "*") {
			break
		}
		keep = append(keep, seg)
	}
	return strings.Join(keep, "/")
}
