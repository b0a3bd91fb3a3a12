package listing

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger remembers uploaded objects that no saved listing refers to yet.
// Track marks keys as pending, Claim forgets them once a listing owns them
// and Stale lists keys pending since before the given time.
type Ledger interface {
	Track(ctx context.Context, keys ...string) error
	Claim(ctx context.Context, keys ...string) error
	Stale(ctx context.Context, before time.Time, limit int64) ([]string, error)
}

// RedisLedger keeps pending keys in a sorted set scored by upload time in
// epoch milliseconds.
type RedisLedger struct {
	rdb *redis.Client
	key string
	now func() time.Time
}

const DefaultLedgerKey = "uploads:pending"

func NewRedisLedger(rdb *redis.Client, key string) *RedisLedger {
	if key == "" {
		key = DefaultLedgerKey
	}
	return &RedisLedger{rdb: rdb, key: key, now: time.Now}
}

func (l *RedisLedger) Track(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	score := float64(l.now().UnixMilli())
	members := make([]redis.Z, len(keys))
	for i, k := range keys {
		members[i] = redis.Z{Score: score, Member: k}
	}
	return l.rdb.ZAdd(ctx, l.key, members...).Err()
}

func (l *RedisLedger) Claim(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]any, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	return l.rdb.ZRem(ctx, l.key, members...).Err()
}

func (l *RedisLedger) Stale(ctx context.Context, before time.Time, limit int64) ([]string, error) {
	return l.rdb.ZRangeByScore(ctx, l.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(before.UnixMilli(), 10),
		Count: limit,
	}).Result()
}
