package query

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getreqlog/reqlog/pkg/capture"
	"github.com/getreqlog/reqlog/pkg/logging"
	"github.com/getreqlog/reqlog/pkg/pathtemplate"
	"github.com/getreqlog/reqlog/pkg/store"
	"github.com/getreqlog/reqlog/pkg/writer"
)

var day = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func record(start time.Time, method, uri string) *capture.Record {
	end := start.Add(5 * time.Millisecond)
	return &capture.Record{
		Request: capture.RequestInfo{
			StartTime: capture.FormatTime(start),
			Method:    method,
			URI:       uri,
			URL:       "http://example.com" + uri,
			IP:        "192.0.2.1",
		},
		Response: capture.ResponseInfo{
			EndTime:    capture.FormatTime(end),
			DurationMs: capture.DurationMillis(end.Sub(start)),
			StatusCode: 200,
			StatusText: "OK",
		},
	}
}

func writeRecords(t *testing.T, s store.Store, template string, records ...*capture.Record) {
	t.Helper()
	w := writer.New(writer.Config{Store: s, Template: pathtemplate.Template(template)})
	for _, r := range records {
		w.Write(r)
	}
}

func TestQuery_RoundTripThroughWriter(t *testing.T) {
	s := store.NewMemoryStore()
	original := record(day, "POST", "/api/orders")
	original.Request.Body = map[string]any{"item": "widget", "qty": float64(3)}
	writeRecords(t, s, "http-logs/{Y}-{m}-{d}.log", original)

	records, err := New().Disk(s).WhereDate("2024-03-10").All()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, original, records[0], "a written record reads back equal")
}

func TestQuery_DateConstraintResolvesSingleArtifact(t *testing.T) {
	s := store.NewMemoryStore()
	writeRecords(t, s, "http-logs/{Y}-{m}-{d}.log",
		record(day, "GET", "/a"),
		record(day.AddDate(0, 0, 1), "GET", "/b"))

	b := New().Disk(s).WhereDate("2024-03-10")
	assert.Equal(t, []string{"http-logs/2024-03-10.log"}, b.resolveCandidates())

	records, err := b.All()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/a", records[0].Request.URI)
}

func TestQuery_NoDateMatchesAllDays(t *testing.T) {
	s := store.NewMemoryStore()
	writeRecords(t, s, "http-logs/{Y}-{m}-{d}.log",
		record(day, "GET", "/a"),
		record(day.AddDate(0, 0, 1), "GET", "/b"),
		record(day.AddDate(0, 0, 2), "GET", "/c"))

	records, err := New().Disk(s).All()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestQuery_LiteralTemplateIsQueriedDirectly(t *testing.T) {
	s := store.NewMemoryStore()
	writeRecords(t, s, "requests.log", record(day, "GET", "/a"), record(day, "GET", "/b"))

	records, err := New().Disk(s).PathTemplate("requests.log").All()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestQuery_PerRequestArtifactsListed(t *testing.T) {
	s := store.NewMemoryStore()
	writeRecords(t, s, "http-logs/{Y}-{m}-{d}/{uuid}.json",
		record(day, "GET", "/a"), record(day, "GET", "/b"))

	records, err := New().
		Disk(s).
		PathTemplate("http-logs/{Y}-{m}-{d}/{uuid}.json").
		WhereDate("2024-03-10").
		All()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestQuery_WildcardedDirectoryListsRecursively(t *testing.T) {
	s := store.NewMemoryStore()
	template := "http-logs/{Y}/{m}/{d}.log"
	writeRecords(t, s, template,
		record(day, "GET", "/a"),
		record(day.AddDate(0, 1, 0), "GET", "/b"))

	records, err := New().Disk(s).PathTemplate("http-logs/{Y}/{m}/{d}.log").All()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = New().
		Disk(s).
		PathTemplate("http-logs/{Y}/{m}/{d}.log").
		WhereDate("2024-03-10").
		All()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/a", records[0].Request.URI)
}

func TestQuery_MissingArtifactsYieldEmptyResult(t *testing.T) {
	records, err := New().Disk(store.NewMemoryStore()).WhereDate("2024-03-10").All()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestQuery_MalformedLinesSkipped(t *testing.T) {
	s := store.NewMemoryStore()
	writeRecords(t, s, "http-logs/{Y}-{m}-{d}.log", record(day, "GET", "/a"))
	require.NoError(t, s.Append("http-logs/2024-03-10.log", []byte("not json\n\n   \n")))
	writeRecords(t, s, "http-logs/{Y}-{m}-{d}.log", record(day, "GET", "/b"))

	records, err := New().Disk(s).WhereDate("2024-03-10").All()
	require.NoError(t, err)
	assert.Len(t, records, 2, "corrupt and blank lines do not abort the scan")
}

func TestQuery_CountMatchesAll(t *testing.T) {
	s := store.NewMemoryStore()
	var rs []*capture.Record
	for i := 0; i < 5; i++ {
		rs = append(rs, record(day.Add(time.Duration(i)*time.Minute), "GET", fmt.Sprintf("/r/%d", i)))
	}
	writeRecords(t, s, "http-logs/{Y}-{m}-{d}.log", rs...)
	require.NoError(t, s.Append("http-logs/2024-03-10.log", []byte("[1,2,3]\ngarbage\n")))

	b := New().Disk(s).WhereDate("2024-03-10")
	count, err := b.Count()
	require.NoError(t, err)

	records, err := b.All()
	require.NoError(t, err)
	assert.Equal(t, len(records), count)
	assert.Equal(t, 5, count, "only top-level JSON objects are records")
}

func TestQuery_FirstAndLast(t *testing.T) {
	s := store.NewMemoryStore()
	writeRecords(t, s, "http-logs/{Y}-{m}-{d}.log",
		record(day, "GET", "/first"),
		record(day.Add(time.Minute), "GET", "/middle"),
		record(day.Add(2*time.Minute), "GET", "/last"))

	b := New().Disk(s).WhereDate("2024-03-10")

	first, err := b.First()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "/first", first.Request.URI)

	last, err := b.Last()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "/last", last.Request.URI)
}

func TestQuery_FirstOnEmptyMatchIsNil(t *testing.T) {
	b := New().Disk(store.NewMemoryStore()).WhereDate("2024-03-10")

	first, err := b.First()
	require.NoError(t, err)
	assert.Nil(t, first)

	last, err := b.Last()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestQuery_InvalidDateSurfacesAtExecution(t *testing.T) {
	b := New().Disk(store.NewMemoryStore()).WhereDate("03/10/2024")

	_, err := b.All()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "date", cfgErr.Field)

	_, err = b.Count()
	assert.Error(t, err, "the remembered error surfaces on every execution call")
}

func TestQuery_UnsupportedFormatSurfacesAtExecution(t *testing.T) {
	_, err := New().Disk(store.NewMemoryStore()).Format("line").All()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "format", cfgErr.Field)
}

func TestQuery_FirstConfigErrorWins(t *testing.T) {
	b := New().Disk(store.NewMemoryStore()).Format("line").WhereDate("bad")

	_, err := b.All()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "format", cfgErr.Field)
}

func TestQuery_NoDiskConfigured(t *testing.T) {
	_, err := New().WhereDate("2024-03-10").All()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "disk", cfgErr.Field)
}

// listFailStore fails every listing call.
type listFailStore struct {
	store.Store
}

func (listFailStore) ListFiles(string) ([]string, error) {
	return nil, fmt.Errorf("permission denied")
}

func (listFailStore) ListAllFiles(string) ([]string, error) {
	return nil, fmt.Errorf("permission denied")
}

func TestQuery_ListingFailureIsZeroMatches(t *testing.T) {
	var diag bytes.Buffer
	records, err := New().
		Disk(listFailStore{Store: store.NewMemoryStore()}).
		PathTemplate("http-logs/{Y}-{m}-{d}/{uuid}.json").
		WhereDate("2024-03-10").
		Logger(logging.New(logging.Config{Output: &diag})).
		All()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Contains(t, diag.String(), "listing failed")
}
