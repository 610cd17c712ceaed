// Package roster loads the legislator table from CSV or HTML and memoizes the index.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
	domroster "github.com/kailas-cloud/dietwatch/internal/domain/roster"
)

// Loader reads every roster row from its backing source.
type Loader interface {
	Load(ctx context.Context) ([]legislator.Legislator, error)
}

// Source memoizes the roster index and reloads it after ttl.
// A failed reload keeps serving the previous index; the first load has no fallback.
type Source struct {
	loader Loader
	ttl    time.Duration
	opts   []domroster.Option
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	index    *domroster.Index
	loadedAt time.Time
}

// NewSource creates a memoizing source. A non-positive ttl loads once and never refreshes.
func NewSource(loader Loader, ttl time.Duration, logger *zap.Logger, opts ...domroster.Option) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{loader: loader, ttl: ttl, opts: opts, logger: logger, now: time.Now}
}

// Load returns the current index, reloading it when stale.
func (s *Source) Load(ctx context.Context) (*domroster.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil && (s.ttl <= 0 || s.now().Sub(s.loadedAt) < s.ttl) {
		return s.index, nil
	}

	rows, err := s.loader.Load(ctx)
	if err != nil {
		if s.index != nil {
			s.logger.Warn("roster reload failed, serving previous index",
				zap.Error(err), zap.Int("rows", s.index.Len()))
			s.loadedAt = s.now()
			return s.index, nil
		}
		if errors.Is(err, domain.ErrDataSource) {
			return nil, fmt.Errorf("load roster: %w", err)
		}
		return nil, fmt.Errorf("load roster: %w: %w", domain.ErrDataSource, err)
	}
	if len(rows) == 0 {
		if s.index != nil {
			return s.index, nil
		}
		return nil, fmt.Errorf("load roster: %w: no rows", domain.ErrDataSource)
	}

	s.index = domroster.New(rows, s.opts...)
	s.loadedAt = s.now()
	s.logger.Info("roster loaded", zap.Int("rows", len(rows)))
	return s.index, nil
}
