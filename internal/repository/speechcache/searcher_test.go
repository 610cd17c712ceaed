package speechcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dietwatch/internal/db"
	"github.com/kailas-cloud/dietwatch/internal/db/memory"
	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/speech"
)

type mockSearcher struct {
	recs  []speech.Record
	err   error
	calls int
}

func (m *mockSearcher) Search(_ context.Context, _ speech.Query) ([]speech.Record, error) {
	m.calls++
	return m.recs, m.err
}

// failingStore implements the consumer interface and fails every call.
type failingStore struct{ sets int }

func (f *failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (f *failingStore) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	f.sets++
	return errors.New("connection refused")
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_speech_cache_total"}, []string{"result"})
}

var query = speech.Query{Speaker: "山田太郎", Keyword: "防衛"}

func TestSearch_MissThenHit(t *testing.T) {
	inner := &mockSearcher{recs: []speech.Record{{SpeechID: "1", Speaker: "山田太郎", Speech: "防衛"}}}
	counter := newCounter()
	c := New(inner, memory.NewStore(), time.Hour, counter, zap.NewNop())

	for i := 0; i < 2; i++ {
		recs, err := c.Search(context.Background(), query)
		if err != nil {
			t.Fatalf("Search #%d: %v", i, err)
		}
		if len(recs) != 1 || recs[0].SpeechID != "1" {
			t.Fatalf("Search #%d: unexpected records %+v", i, recs)
		}
	}

	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %f", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %f", got)
	}
}

func TestSearch_EmptyResultIsCached(t *testing.T) {
	inner := &mockSearcher{}
	c := New(inner, memory.NewStore(), time.Hour, nil, nil)

	_, _ = c.Search(context.Background(), query)
	recs, err := c.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 0 || inner.calls != 1 {
		t.Errorf("expected cached empty result, got %d records and %d calls", len(recs), inner.calls)
	}
}

func TestSearch_ErrorsAreNotCached(t *testing.T) {
	upErr := &domain.UpstreamRequestError{Speaker: "山田太郎", Keyword: "防衛", StatusCode: 500}
	inner := &mockSearcher{err: upErr}
	store := memory.NewStore()
	c := New(inner, store, time.Hour, nil, nil)

	_, err := c.Search(context.Background(), query)
	if !errors.Is(err, domain.ErrUpstreamRequest) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("failed responses must not be cached")
	}

	inner.err = nil
	inner.recs = []speech.Record{{SpeechID: "9"}}
	recs, err := c.Search(context.Background(), query)
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected fresh result after failure, got %v %v", recs, err)
	}
}

func TestSearch_StoreFailuresAreIgnored(t *testing.T) {
	inner := &mockSearcher{recs: []speech.Record{{SpeechID: "1"}}}
	fs := &failingStore{}
	c := New(inner, fs, time.Hour, nil, zap.NewNop())

	recs, err := c.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("store failure must not surface: %v", err)
	}
	if len(recs) != 1 || fs.sets != 1 {
		t.Errorf("unexpected result: recs=%d sets=%d", len(recs), fs.sets)
	}
}

func TestSearch_CorruptEntryFallsThrough(t *testing.T) {
	store := memory.NewStore()
	_ = store.Set(context.Background(), CacheKey(query, 0), []byte("not json"))
	inner := &mockSearcher{recs: []speech.Record{{SpeechID: "1"}}}

	recs, err := New(inner, store, time.Hour, nil, nil).Search(context.Background(), query)
	if err != nil || len(recs) != 1 || inner.calls != 1 {
		t.Fatalf("expected inner call after corrupt entry: recs=%v err=%v calls=%d", recs, err, inner.calls)
	}

	data, err := store.Get(context.Background(), CacheKey(query, 0))
	if errors.Is(err, db.ErrKeyNotFound) || string(data) == "not json" {
		t.Error("expected corrupt entry to be overwritten")
	}
}

func TestCacheKey(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := CacheKey(speech.Query{Speaker: "A", Keyword: "k", From: from}, 30)
	b := CacheKey(speech.Query{Speaker: "A", Keyword: "k", From: from}, 30)
	c := CacheKey(speech.Query{Party: "A", Keyword: "k", From: from}, 30)
	d := CacheKey(speech.Query{Speaker: "A", Keyword: "k"}, 30)
	e := CacheKey(speech.Query{Speaker: "A", Keyword: "k", From: from}, 100)

	if a != b {
		t.Error("equal queries must share a key")
	}
	if a == c || a == d || a == e {
		t.Error("distinct queries must not share a key")
	}
	if len(a) != len(cacheKeyPrefix)+64 {
		t.Errorf("unexpected key length %d", len(a))
	}
}

func TestSearch_PageSizeSeparatesEntries(t *testing.T) {
	store := memory.NewStore()
	inner := &mockSearcher{recs: []speech.Record{{SpeechID: "1"}}}

	if _, err := New(inner, store, time.Hour, nil, nil, WithPageSize(30)).Search(context.Background(), query); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(inner, store, time.Hour, nil, nil, WithPageSize(100)).Search(context.Background(), query); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected a page size change to miss the cache, got %d inner calls", inner.calls)
	}
	if _, err := store.Get(context.Background(), CacheKey(query, 100)); err != nil {
		t.Errorf("expected entry under the new page size: %v", err)
	}
}
