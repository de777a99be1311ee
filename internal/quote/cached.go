package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"github.com/jeovahfialho/papertrader/pkg/metrics"
	"go.uber.org/zap"
)

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) error
}

var _ Provider = (*Cached)(nil)

// Cached serves recent quotes from a cache and falls through to the
// upstream provider on a miss. Cache failures never fail a lookup.
type Cached struct {
	next  Provider
	cache Cache
	ttl   time.Duration
}

func NewCached(next Provider, cache Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl}
}

func (c *Cached) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = Normalize(symbol)

	var q domain.Quote
	if err := c.cache.Get(ctx, cacheKey(symbol), &q); err == nil && q.Symbol != "" {
		metrics.RecordCacheHit()
		return q, nil
	}
	metrics.RecordCacheMiss()

	return c.Refresh(ctx, symbol)
}

// Refresh bypasses the cache, asks upstream and stores the answer.
func (c *Cached) Refresh(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = Normalize(symbol)

	q, err := c.next.Lookup(ctx, symbol)
	if err != nil {
		return domain.Quote{}, err
	}

	if err := c.cache.Set(ctx, cacheKey(symbol), q, c.ttl); err != nil {
		logger.WithContext(ctx).Warn("erro ao salvar cotação no cache",
			zap.String("symbol", symbol),
			zap.Error(err))
	}

	return q, nil
}

const cacheKeyPrefix = "quote:"

func cacheKey(symbol string) string {
	return cacheKeyPrefix + symbol
}

type Evictor interface {
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Evict drops the cached quotes of the given symbols, or every cached quote
// when no symbol is given.
func Evict(ctx context.Context, cache Evictor, symbols ...string) error {
	if len(symbols) == 0 {
		return cache.DeletePattern(ctx, cacheKeyPrefix+"*")
	}

	for _, symbol := range symbols {
		symbol = Normalize(symbol)
		if symbol == "" {
			continue
		}
		if err := cache.Delete(ctx, cacheKey(symbol)); err != nil {
			return fmt.Errorf("erro ao remover cotação %s do cache: %w", symbol, err)
		}
	}

	return nil
}
