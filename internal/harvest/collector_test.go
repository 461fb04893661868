package harvest

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AUMikkel/survey-scripts/internal/reference"
	"github.com/AUMikkel/survey-scripts/internal/scopus"
	"github.com/AUMikkel/survey-scripts/internal/store"
)

func newCollector(src *fakeSource, path string) *Collector {
	return NewCollector(NewCiting(src, 0), path).WithLogger(zerolog.Nop())
}

func TestCollector_SkipsSeedsAlreadyInStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citing.json")

	existing := store.New()
	require.NoError(t, existing.Put("A", records("A", 2)))
	require.NoError(t, existing.Save(path))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	src := &fakeSource{pageSize: 25, pages: map[string][]scopus.Page{
		"A": {recordsPage("A", 9)},
		"B": {recordsPage("B", 3)},
	}}
	st, sum, err := newCollector(src, path).Run(context.Background(), []string{"A", "B"})
	require.NoError(t, err)

	assert.Equal(t, []string{"B@0", "B@25"}, src.requests)
	assert.Equal(t, 1, sum.Fetched)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 3, sum.Records)
	assert.Equal(t, []string{"A", "B"}, st.Keys())

	a, _ := st.Records("A")
	assert.Equal(t, records("A", 2), a)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	reloaded, err := store.Load(path)
	require.NoError(t, err)
	b, _ := reloaded.Records("B")
	assert.Equal(t, records("B", 3), b)
	// The "A" entry text is unchanged; "B" is appended after it.
	assert.Equal(t, string(before[:len(before)-3]), string(after[:len(before)-3]))
}

func TestCollector_IdempotentSecondRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citing.json")
	src := &fakeSource{pageSize: 10, pages: map[string][]scopus.Page{
		"1": {recordsPage("1", 10), recordsPage("1", 4)},
		"2": {},
	}}
	seeds := []string{"1", "SCOPUS_ID:2"}

	_, _, err := newCollector(src, path).Run(context.Background(), seeds)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	requests := len(src.requests)

	_, sum, err := newCollector(src, path).Run(context.Background(), seeds)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, requests, len(src.requests), "second run issued requests")
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 0, sum.Fetched)
	assert.Equal(t, string(first), string(second))
}

func TestCollector_ZeroResultSeedIsRecordedAndSkippedLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citing.json")
	src := &fakeSource{pageSize: 25, pages: map[string][]scopus.Page{}}

	st, _, err := newCollector(src, path).Run(context.Background(), []string{"Z"})
	require.NoError(t, err)
	assert.True(t, st.Has("Z"))

	src.requests = nil
	_, sum, err := newCollector(src, path).Run(context.Background(), []string{"Z"})
	require.NoError(t, err)
	assert.Empty(t, src.requests)
	assert.Equal(t, 1, sum.Skipped)
}

func TestCollector_SkipsEmptyIdentifiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citing.json")
	src := &fakeSource{pageSize: 25}

	st, sum, err := newCollector(src, path).Run(context.Background(), []string{"", "  ", "SCOPUS_ID:", "7"})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Invalid)
	assert.Equal(t, []string{"7"}, st.Keys())
	assert.Equal(t, []string{"7@0"}, src.requests)
}

func TestCollector_NormalizesBeforeLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citing.json")
	src := &fakeSource{pageSize: 25}

	st, sum, err := newCollector(src, path).Run(context.Background(), []string{"2-s2.0-5", "SCOPUS_ID:5", " 5 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, st.Keys())
	assert.Equal(t, 1, sum.Fetched)
	assert.Equal(t, 2, sum.Skipped)
}

// cancellingHarvester cancels the run while harvesting a given seed.
type cancellingHarvester struct {
	inner    Harvester
	cancelAt string
	cancel   context.CancelFunc
	seen     []string
}

func (h *cancellingHarvester) Direction() reference.Direction { return h.inner.Direction() }

func (h *cancellingHarvester) Harvest(ctx context.Context, seed string) Outcome {
	h.seen = append(h.seen, seed)
	out := h.inner.Harvest(ctx, seed)
	if seed == h.cancelAt {
		h.cancel()
	}
	return out
}

func TestCollector_ResumesAfterInterruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citing.json")
	seeds := []string{"1", "2", "3", "4"}
	src := &fakeSource{pageSize: 25, pages: map[string][]scopus.Page{
		"1": {recordsPage("1", 1)},
		"2": {recordsPage("2", 2)},
		"3": {recordsPage("3", 3)},
		"4": {recordsPage("4", 4)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	h := &cancellingHarvester{inner: NewCiting(src, 0), cancelAt: "3", cancel: cancel}
	_, sum, err := NewCollector(h, path).WithLogger(zerolog.Nop()).Run(ctx, seeds)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, sum.Fetched)

	// Seeds 1 and 2 were checkpointed; the in-flight seed 3 was not.
	persisted, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, persisted.Keys())

	h2 := &cancellingHarvester{inner: NewCiting(src, 0), cancel: func() {}}
	st, sum, err := NewCollector(h2, path).WithLogger(zerolog.Nop()).Run(context.Background(), seeds)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, h2.seen)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, []string{"1", "2", "3", "4"}, st.Keys())
}

func TestCollect_CheckpointsAfterEverySeed(t *testing.T) {
	src := &fakeSource{pageSize: 25, pages: map[string][]scopus.Page{
		"1": {recordsPage("1", 1)},
		"2": {recordsPage("2", 2)},
	}}
	var snapshots []int
	checkpoint := func(s *store.Store) error {
		snapshots = append(snapshots, s.Len())
		return nil
	}

	st := store.New()
	_, err := Collect(context.Background(), NewCiting(src, 0), st, []string{"1", "", "2"}, checkpoint, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, snapshots)
}

func TestCollect_CheckpointFailureIsFatal(t *testing.T) {
	src := &fakeSource{pageSize: 25}
	diskFull := errors.New("no space left on device")
	calls := 0
	checkpoint := func(*store.Store) error {
		calls++
		return diskFull
	}

	sum, err := Collect(context.Background(), NewCiting(src, 0), store.New(), []string{"1", "2"}, checkpoint, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckpoint)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"1@0"}, src.requests)
	assert.Equal(t, 0, sum.Fetched)
}

func TestCollector_UnwritableStoreIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "citing.json")
	src := &fakeSource{pageSize: 25}

	_, _, err := newCollector(src, path).Run(context.Background(), []string{"1", "2"})
	assert.ErrorIs(t, err, ErrCheckpoint)
	assert.Len(t, src.requests, 1)
}

func TestCollector_CorruptStoreIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citing.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1": [`), 0644))

	src := &fakeSource{pageSize: 25}
	_, _, err := newCollector(src, path).Run(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, ErrStoreLoad)
	assert.NotErrorIs(t, err, ErrCheckpoint)
	assert.Empty(t, src.requests)
}

func TestCollector_LogsSeedFilePositions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citing.json")
	src := &fakeSource{pageSize: 25}

	var buf bytes.Buffer
	_, _, err := NewCollector(NewCiting(src, 0), path).
		WithLogger(zerolog.New(&buf)).
		WithOffset(100).
		Run(context.Background(), []string{"7", "8"})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"index":101,"seed":"7"`)
	assert.Contains(t, buf.String(), `"index":102,"seed":"8"`)
	assert.NotContains(t, buf.String(), `"index":1,`)
}

func TestCollector_FailingAPIDegradesToEmpty(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := scopus.NewClient(
		scopus.WithBaseURL(srv.URL),
		scopus.WithAPIKey("k"),
		scopus.WithRequestDelay(0),
		scopus.WithRetryDelay(time.Millisecond),
		scopus.WithLogger(zerolog.Nop()),
	)
	path := filepath.Join(t.TempDir(), "citing.json")

	st, sum, err := NewCollector(NewCiting(client, 0), path).WithLogger(zerolog.Nop()).Run(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, int32(scopus.MaxAttempts), calls.Load())
	assert.Equal(t, []string{"1"}, sum.Degraded)

	records, ok := st.Records("1")
	require.True(t, ok)
	assert.Empty(t, records)
}

func TestCollector_EndToEndAgainstFakeScopus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("start") {
		case "0":
			w.Write([]byte(`{"search-results":{"entry":[
				{"dc:identifier":"SCOPUS_ID:10","dc:title":"T1","prism:coverDate":"2019-01-01","subtypeDescription":"Review"},
				{"dc:identifier":"SCOPUS_ID:11","dc:title":"T2","prism:coverDate":"2020-01-01","subtypeDescription":"Article"}
			]}}`))
		default:
			w.Write([]byte(`{"search-results":{"entry":[{"error":"Result set was empty"}]}}`))
		}
	}))
	defer srv.Close()

	client := scopus.NewClient(
		scopus.WithBaseURL(srv.URL),
		scopus.WithPageSize(2),
		scopus.WithRequestDelay(0),
		scopus.WithLogger(zerolog.Nop()),
	)
	path := filepath.Join(t.TempDir(), "citing.json")

	_, sum, err := NewCollector(NewCiting(client, 0), path).WithLogger(zerolog.Nop()).Run(context.Background(), []string{"2-s2.0-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Records)
	assert.Equal(t, 2, sum.Pages)
	assert.Equal(t, path, sum.StorePath)

	st, err := store.Load(path)
	require.NoError(t, err)
	got, _ := st.Records("1")
	assert.Equal(t, []reference.Record{
		{Title: "T1", ScopusID: "10", Year: "2019", Type: "Review"},
		{Title: "T2", ScopusID: "11", Year: "2020", Type: "Article"},
	}, got)
}
