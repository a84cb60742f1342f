package rotate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getreqlog/reqlog/pkg/store"
)

var clock = time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

func seeded(t *testing.T, paths ...string) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	for _, p := range paths {
		require.NoError(t, s.Put(p, []byte("x")))
	}
	return s
}

func TestRun_DeletesOnlyExpiredArtifacts(t *testing.T) {
	s := seeded(t,
		"http-logs/2024-03-19.log", // 1 day old
		"http-logs/2024-03-05.log", // 15 days old
		"http-logs/2024-02-01.log", // 48 days old
	)

	report, err := Run(s, "http-logs/{Y}-{m}-{d}.log", Options{
		RetentionDays: 10,
		Now:           func() time.Time { return clock },
	})
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 3, Deleted: 2, Kept: 1}, report)
	assert.True(t, s.Exists("http-logs/2024-03-19.log"))
	assert.False(t, s.Exists("http-logs/2024-03-05.log"))
	assert.False(t, s.Exists("http-logs/2024-02-01.log"))
}

func TestRun_RetentionBoundaryIsExclusive(t *testing.T) {
	// Exactly at the cutoff day: kept. Strictly before: deleted.
	s := seeded(t,
		"http-logs/2024-03-10.log",
		"http-logs/2024-03-09.log",
	)

	report, err := Run(s, "http-logs/{Y}-{m}-{d}.log", Options{
		RetentionDays: 10,
		Now:           func() time.Time { return clock },
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Deleted)
	assert.True(t, s.Exists("http-logs/2024-03-10.log"))
	assert.False(t, s.Exists("http-logs/2024-03-09.log"))
}

func TestRun_DryRunCountsWithoutDeleting(t *testing.T) {
	s := seeded(t,
		"http-logs/2024-03-19.log",
		"http-logs/2024-02-01.log",
	)

	opts := Options{
		RetentionDays: 40,
		DryRun:        true,
		Now:           func() time.Time { return clock },
	}
	report, err := Run(s, "http-logs/{Y}-{m}-{d}.log", opts)
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 2, Deleted: 0, Kept: 2}, report)

	opts.RetentionDays = 10
	report, err = Run(s, "http-logs/{Y}-{m}-{d}.log", opts)
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 2, Deleted: 1, Kept: 1}, report)
	assert.True(t, s.Exists("http-logs/2024-02-01.log"), "dry run must not delete")
}

func TestRun_IsIdempotent(t *testing.T) {
	s := seeded(t, "http-logs/2024-02-01.log", "http-logs/2024-03-19.log")
	opts := Options{RetentionDays: 10, Now: func() time.Time { return clock }}

	first, err := Run(s, "http-logs/{Y}-{m}-{d}.log", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Deleted)

	second, err := Run(s, "http-logs/{Y}-{m}-{d}.log", opts)
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 1, Deleted: 0, Kept: 1}, second)
}

func TestRun_UndatedArtifactsAreKept(t *testing.T) {
	s := seeded(t,
		"http-logs/access.log",
		"http-logs/2024-13-45.log", // date-shaped but not a valid date
		"http-logs/2024-02-01.log",
	)

	report, err := Run(s, "http-logs/{Y}-{m}-{d}.log", Options{
		RetentionDays: 10,
		Now:           func() time.Time { return clock },
	})
	require.NoError(t, err)

	assert.Equal(t, Report{Scanned: 3, Deleted: 1, Kept: 2}, report)
	assert.True(t, s.Exists("http-logs/access.log"))
	assert.True(t, s.Exists("http-logs/2024-13-45.log"))
}

func TestRun_SlashSeparatedDatesInferred(t *testing.T) {
	s := seeded(t, "http-logs/2024/02/01.log", "http-logs/2024/03/19.log")

	report, err := Run(s, "http-logs/{Y}/{m}/{d}.log", Options{
		RetentionDays: 10,
		Now:           func() time.Time { return clock },
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Deleted)
	assert.False(t, s.Exists("http-logs/2024/02/01.log"))
	assert.True(t, s.Exists("http-logs/2024/03/19.log"))
}

func TestRun_InvalidRetention(t *testing.T) {
	s := store.NewMemoryStore()
	for _, days := range []int{0, -5} {
		_, err := Run(s, "http-logs/{Y}-{m}-{d}.log", Options{RetentionDays: days})
		assert.ErrorIs(t, err, ErrInvalidRetention)
	}
}

// stuckStore refuses deletions.
type stuckStore struct {
	*store.MemoryStore
}

func (s *stuckStore) Delete(string) bool { return false }

func TestRun_DeleteFailureKeepsScanning(t *testing.T) {
	s := &stuckStore{MemoryStore: seeded(t,
		"http-logs/2024-02-01.log",
		"http-logs/2024-02-02.log",
	)}

	report, err := Run(s, "http-logs/{Y}-{m}-{d}.log", Options{
		RetentionDays: 10,
		Now:           func() time.Time { return clock },
	})
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 2, Deleted: 0, Kept: 2}, report)
}

func TestInferDate(t *testing.T) {
	date, ok := InferDate("http-logs/2024-03-10.log")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), date)

	date, ok = InferDate("http-logs/2024/03/10.log")
	require.True(t, ok)
	assert.Equal(t, 10, date.Day())

	_, ok = InferDate("http-logs/latest.log")
	assert.False(t, ok)

	_, ok = InferDate("http-logs/2024-00-99.log")
	assert.False(t, ok, "date-shaped but invalid substrings are not dates")
}
