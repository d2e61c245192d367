package recommender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/pkg/metrics"
)

// resultCache 缓存推荐结果，key 为 <prefix>:<fingerprint>:<user>:<topN>。
//
// fingerprint 由评分内容与引擎参数计算，共享后端（Redis）的其他语料、
// 重建后评分有变化的实例都落在不同的 key 上。
// 缓存后端出错或熔断打开时直接计算，不影响推荐结果。
type resultCache struct {
	store  core.Store
	ttl    int
	prefix string
	fp     string

	cb     *gobreaker.CircuitBreaker[[]string]
	logger zerolog.Logger
}

func newResultCache(store core.Store, ttl int, prefix, fp string, logger zerolog.Logger) *resultCache {
	name := "cache-" + store.Name()
	cb := gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// key 不存在是正常的未命中
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsStoreNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("cache circuit breaker state change")
		},
	})

	return &resultCache{
		store:  store,
		ttl:    ttl,
		prefix: prefix,
		fp:     fp,
		cb:     cb,
		logger: logger,
	}
}

func (c *resultCache) key(user string, topN int) string {
	return fmt.Sprintf("%s:%s:%s:%d", c.prefix, c.fp, user, topN)
}

func (c *resultCache) getOrCompute(
	ctx context.Context,
	user string,
	topN int,
	compute func() ([]string, error),
) ([]string, error) {
	key := c.key(user, topN)

	ids, err := c.cb.Execute(func() ([]string, error) {
		data, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return nil, err
		}
		return ids, nil
	})
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues(metrics.CacheHit).Inc()
		return ids, nil
	case core.IsStoreNotFound(err):
		metrics.CacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
	default:
		metrics.CacheLookups.WithLabelValues(metrics.CacheError).Inc()
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache get failed, computing")
		}
	}

	ids, err = compute()
	if err != nil {
		return nil, err
	}

	c.put(ctx, key, ids)
	return ids, nil
}

func (c *resultCache) put(ctx context.Context, key string, ids []string) {
	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	_, err = c.cb.Execute(func() ([]string, error) {
		return nil, c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, gobreaker.ErrOpenState) {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}
