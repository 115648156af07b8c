package redis

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// ScaleCache decorates a CollateralScaler with a Redis read-through cache.
// Token decimals never change, so entries are written without a TTL and
// survive process restarts; the in-process memo in front of this cache keeps
// steady-state lookups off the network entirely.
//
// Key schema:
//
//	collateral:scale:{token} - decimal string of 10^decimals
type ScaleCache struct {
	rdb   *redis.Client
	inner domain.CollateralScaler
}

// NewScaleCache creates a ScaleCache over the given client and fallback
// resolver.
func NewScaleCache(c *Client, inner domain.CollateralScaler) *ScaleCache {
	return &ScaleCache{rdb: c.Underlying(), inner: inner}
}

func scaleKey(token string) string { return "collateral:scale:" + token }

// ScaleOf returns the cached scale, resolving and caching on a miss.
func (s *ScaleCache) ScaleOf(ctx context.Context, token string) (*big.Int, error) {
	token = domain.NormalizeAddress(token)

	val, err := s.rdb.Get(ctx, scaleKey(token)).Result()
	if err == nil {
		scale, ok := new(big.Int).SetString(val, 10)
		if !ok {
			return nil, fmt.Errorf("redis: malformed cached scale %q for %s", val, token)
		}
		return scale, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get scale for %s: %w", token, err)
	}

	scale, err := s.inner.ScaleOf(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, scaleKey(token), scale.String(), 0).Err(); err != nil {
		return nil, fmt.Errorf("redis: cache scale for %s: %w", token, err)
	}
	return scale, nil
}

var _ domain.CollateralScaler = (*ScaleCache)(nil)
