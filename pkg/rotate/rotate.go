// Package rotate deletes log artifacts older than a retention threshold.
//
// The artifact date is inferred by matching a YYYY-MM-DD-or-YYYY/MM/DD
// shaped substring anywhere in the path, independent of the active path
// template. This heuristic is deliberately loose; artifacts without an
// inferable date are always kept, never deleted blind.
package rotate

import (
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/getreqlog/reqlog/pkg/logging"
	"github.com/getreqlog/reqlog/pkg/pathtemplate"
	"github.com/getreqlog/reqlog/pkg/store"
)

// ErrInvalidRetention is returned when the retention period is not a
// positive number of days.
var ErrInvalidRetention = errors.New("rotate: retention days must be a positive integer")

// dateRe matches the first date-shaped substring in an artifact path.
var dateRe = regexp.MustCompile(`(\d{4})[-/](\d{2})[-/](\d{2})`)

// Options configures a rotation run.
type Options struct {
	// RetentionDays keeps artifacts dated within the last N days.
	// Must be positive.
	RetentionDays int

	// DryRun counts eligible artifacts without deleting them.
	DryRun bool

	// Now supplies the clock; overridable in tests.
	Now func() time.Time

	// Logger is the operational side-channel.
	Logger *slog.Logger
}

// Report summarizes a rotation run. In dry-run mode Deleted counts the
// artifacts that would have been deleted.
type Report struct {
	Scanned int
	Deleted int
	Kept    int
}

// Run scans all artifacts under the template's base path and deletes those
// whose inferred date is strictly before now minus the retention period,
// normalized to start of day. Individual delete failures are warned and do
// not abort the scan.
func Run(s store.Store, template pathtemplate.Template, opts Options) (Report, error) {
	if opts.RetentionDays <= 0 {
		return Report{}, ErrInvalidRetention
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	cutoff := startOfDay(now().AddDate(0, 0, -opts.RetentionDays))

	files, err := s.ListAllFiles(template.BasePath())
	if err != nil {
		return Report{}, err
	}

	var report Report
	report.Scanned = len(files)

	for _, file := range files {
		date, ok := InferDate(file)
		if !ok || !date.Before(cutoff) {
			report.Kept++
			continue
		}

		if opts.DryRun {
			logger.Info("would delete artifact", "path", file, "date", date.Format("2006-01-02"))
			report.Deleted++
			continue
		}

		if !s.Delete(file) {
			logger.Warn("failed to delete artifact; keeping", "path", file)
			report.Kept++
			continue
		}
		logger.Info("deleted artifact", "path", file, "date", date.Format("2006-01-02"))
		report.Deleted++
	}

	return report, nil
}

// InferDate extracts the artifact's embedded date from its path. Returns
// false when no valid date-shaped substring is present.
func InferDate(path string) (time.Time, bool) {
	m := dateRe.FindStringSubmatch(path)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
