package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// CursorStore checkpoints the poller's last processed (block, logIndex) in
// Redis so a restart resumes where the previous run stopped. The value is
// "block:logIndex".
type CursorStore struct {
	rdb *redis.Client
	key string
}

// NewCursorStore creates a CursorStore. The name distinguishes independent
// pipelines sharing one Redis.
func NewCursorStore(c *Client, name string) *CursorStore {
	return &CursorStore{rdb: c.Underlying(), key: "ingest:cursor:" + name}
}

// Get returns the checkpoint, or domain.ErrNotFound before the first Set.
func (s *CursorStore) Get(ctx context.Context) (uint64, uint, error) {
	val, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("redis: get cursor %s: %w", s.key, err)
	}

	block, logIndex, err := parseCursor(val)
	if err != nil {
		return 0, 0, fmt.Errorf("redis: cursor %s: %w", s.key, err)
	}
	return block, logIndex, nil
}

// Set stores the checkpoint.
func (s *CursorStore) Set(ctx context.Context, block uint64, logIndex uint) error {
	val := strconv.FormatUint(block, 10) + ":" + strconv.FormatUint(uint64(logIndex), 10)
	if err := s.rdb.Set(ctx, s.key, val, 0).Err(); err != nil {
		return fmt.Errorf("redis: set cursor %s: %w", s.key, err)
	}
	return nil
}

func parseCursor(val string) (uint64, uint, error) {
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed value %q", val)
	}
	block, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed block in %q: %w", val, err)
	}
	logIndex, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed log index in %q: %w", val, err)
	}
	return block, uint(logIndex), nil
}

var _ domain.CursorStore = (*CursorStore)(nil)
