package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fd1az/curve-arbitrage/business/trading/domain"
	"github.com/fd1az/curve-arbitrage/internal/store/redis"
)

const (
	tradesChannel = "trades"
	tradeKey      = "trade:"
)

// RedisWriter is the part of *goredis.Client the notifier uses.
type RedisWriter interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// RedisNotifier publishes outcomes on <prefix>:trades and keeps the latest
// copy of each under <prefix>:trade:<request id>.
type RedisNotifier struct {
	rdb RedisWriter
	key func(string) string
	ttl time.Duration
}

// NewRedisNotifier creates a RedisNotifier on the shared client.
func NewRedisNotifier(client *redis.Client, ttl time.Duration) *RedisNotifier {
	return newRedisNotifier(client.Underlying(), client.Key, ttl)
}

func newRedisNotifier(rdb RedisWriter, key func(string) string, ttl time.Duration) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, key: key, ttl: ttl}
}

func (n *RedisNotifier) Notify(ctx context.Context, o domain.Outcome) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("redis: marshal outcome: %w", err)
	}

	if err := n.rdb.Set(ctx, n.key(tradeKey+o.RequestID.String()), data, n.ttl).Err(); err != nil {
		return fmt.Errorf("redis: store outcome %s: %w", o.RequestID, err)
	}
	if err := n.rdb.Publish(ctx, n.key(tradesChannel), data).Err(); err != nil {
		return fmt.Errorf("redis: publish outcome %s: %w", o.RequestID, err)
	}
	return nil
}
