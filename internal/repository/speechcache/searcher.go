// Package speechcache caches speech search responses in a key-value store.
package speechcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dietwatch/internal/db"
	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/speech"
)

var cacheKeyPrefix = domain.KeyPrefix + "speech:"

// store is the consumer interface for the speech cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSearcher serves repeated queries from the store. Only successful responses are cached.
type CachedSearcher struct {
	inner      speech.Searcher
	store      store
	ttl        time.Duration
	pageSize   int
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Option configures a CachedSearcher.
type Option func(*CachedSearcher)

// WithPageSize sets the upstream page size that is part of every cache key.
func WithPageSize(n int) Option {
	return func(c *CachedSearcher) {
		c.pageSize = n
	}
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner speech.Searcher,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
	opts ...Option,
) *CachedSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CachedSearcher{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search returns cached records or queries the inner searcher.
func (c *CachedSearcher) Search(ctx context.Context, q speech.Query) ([]speech.Record, error) {
	key := CacheKey(q, c.pageSize)

	if recs, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return recs, nil
	}
	c.incCache("miss")

	recs, err := c.inner.Search(ctx, q)
	if err != nil {
		return nil, err //nolint:wrapcheck // UpstreamRequestError already carries the pair
	}

	c.putToCache(ctx, key, recs)
	return recs, nil
}

// CacheKey hashes the canonical form of q fetched with the given page size.
func CacheKey(q speech.Query, pageSize int) string {
	canonical := fmt.Sprintf("speaker=%s\x00party=%s\x00any=%s\x00from=%s\x00until=%s\x00max=%d",
		q.Speaker, q.Party, q.Keyword, speech.FormatDate(q.From), speech.FormatDate(q.Until), pageSize)
	h := sha256.Sum256([]byte(canonical))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedSearcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedSearcher) getFromCache(ctx context.Context, key string) ([]speech.Record, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached speeches", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var recs []speech.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		c.logger.Warn("Failed to parse cached speeches", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return recs, true
}

func (c *CachedSearcher) putToCache(ctx context.Context, key string, recs []speech.Record) {
	if recs == nil {
		recs = []speech.Record{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		c.logger.Warn("Failed to encode speeches for cache", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache speeches", zap.String("key", key), zap.Error(err))
	}
}
