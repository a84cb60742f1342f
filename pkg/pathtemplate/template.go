// Package pathtemplate resolves placeholder-based artifact path patterns.
//
// A template is a store-relative path containing zero or more of the
// placeholders {Y} {m} {d} {H} {uuid}. Resolving against an instant yields a
// concrete path for writing; resolving against a partial date constraint
// yields a glob-style search pattern for listing. {uuid} is resolution-only:
// it can never be reverse-matched, so listing treats it as a wildcard.
package pathtemplate

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// DefaultTemplate is the path structure used when none is configured:
// one shared log file per day.
const DefaultTemplate = "http-logs/{Y}-{m}-{d}.log"

// Template is a placeholder-based artifact path pattern.
type Template string

// HasPlaceholders reports whether the template contains any placeholder.
// A template without placeholders is itself a literal artifact path.
func (t Template) HasPlaceholders() bool {
	return strings.Contains(string(t), "{")
}

// Resolve substitutes every placeholder with calendar fields from the given
// instant, zero padded; {uuid} gets a freshly generated random token on each
// call. Substitution is total and order independent.
func (t Template) Resolve(instant time.Time) string {
	r := strings.NewReplacer(
		"{Y}", fmt.Sprintf("%04d", instant.Year()),
		"{m}", fmt.Sprintf("%02d", int(instant.Month())),
		"{d}", fmt.Sprintf("%02d", instant.Day()),
		"{H}", fmt.Sprintf("%02d", instant.Hour()),
		"{uuid}", uuid.NewString(),
	)
	return r.Replace(string(t))
}

// BasePath returns the longest literal prefix before the first placeholder,
// trimmed to its directory portion. This scopes file listings for queries
// and rotation. A template without placeholders yields its directory.
func (t Template) BasePath() string {
	s := string(t)
	idx := strings.Index(s, "{")
	if idx < 0 {
		dir := path.Dir(s)
		if dir == "." {
			return ""
		}
		return dir
	}
	prefix := strings.TrimRight(s[:idx], "/")
	// The prefix may end mid-segment ("http-logs/2024-" for instance);
	// only whole directories are usable as a scan root.
	if !strings.HasSuffix(s[:idx], "/") {
		dir := path.Dir(prefix)
		if dir == "." {
			return ""
		}
		return dir
	}
	return prefix
}

// SearchPattern substitutes {Y}, {m} and {d} with fields from the date
// constraint when hasDate is set, and every remaining placeholder ({H},
// {uuid}, or the date fields themselves when no constraint is given) with a
// glob wildcard. The result is matched with shell-style semantics where *
// stays within a single path segment.
func (t Template) SearchPattern(date time.Time, hasDate bool) string {
	y, m, d := "*", "*", "*"
	if hasDate {
		y = fmt.Sprintf("%04d", date.Year())
		m = fmt.Sprintf("%02d", int(date.Month()))
		d = fmt.Sprintf("%02d", date.Day())
	}
	r := strings.NewReplacer(
		"{Y}", y,
		"{m}", m,
		"{d}", d,
		"{H}", "*",
		"{uuid}", "*",
	)
	return r.Replace(string(t))
}

// Match reports whether the store-relative path matches the glob pattern
// produced by SearchPattern. Malformed patterns match nothing.
func Match(pattern, p string) bool {
	ok, err := doublestar.Match(pattern, p)
	return err == nil && ok
}
