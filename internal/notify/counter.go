package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicops/booking-platform/pkg/logging"
)

// DailyCounter counts notification admissions per cap key. Increment
// returns the count after incrementing; the window bounds how long the
// key lives since the cap key already embeds the clinic-local date.
type DailyCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int, error)
}

// MemoryDailyCounter is the in-process counter.
type MemoryDailyCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryDailyCounter creates an empty counter.
func NewMemoryDailyCounter() *MemoryDailyCounter {
	return &MemoryDailyCounter{counts: make(map[string]int)}
}

// Increment bumps and returns the count for key.
func (c *MemoryDailyCounter) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

// RedisDailyCounter shares the counter across processes via INCR with an
// expiry set on first increment.
type RedisDailyCounter struct {
	redis  *redis.Client
	logger *logging.Logger
}

// NewRedisDailyCounter creates the redis-backed counter.
func NewRedisDailyCounter(client *redis.Client, logger *logging.Logger) *RedisDailyCounter {
	if client == nil {
		panic("notify: redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisDailyCounter{redis: client, logger: logger}
}

// Increment bumps and returns the count for key.
func (c *RedisDailyCounter) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		c.redis.Expire(ctx, key, window)
	}
	return int(count), nil
}

var (
	_ DailyCounter = (*MemoryDailyCounter)(nil)
	_ DailyCounter = (*RedisDailyCounter)(nil)
)
