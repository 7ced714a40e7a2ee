package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fd1az/curve-arbitrage/business/arbitrage/app"
	"github.com/fd1az/curve-arbitrage/business/arbitrage/domain"
	"github.com/fd1az/curve-arbitrage/internal/store/redis"
)

const (
	opportunitiesChannel = "opportunities"
	latestKey            = "opportunities:latest"
)

var _ app.Reporter = (*Redis)(nil)

// RedisWriter is the part of *goredis.Client the reporter uses.
type RedisWriter interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// snapshot is the published form of a pass.
type snapshot struct {
	ScannedAt     time.Time            `json:"scanned_at"`
	DurationMS    int64                `json:"duration_ms"`
	Entities      int                  `json:"entities"`
	Opportunities []domain.Opportunity `json:"opportunities"`
	Skipped       map[string]int       `json:"skipped,omitempty"`
}

// Redis publishes each pass on <prefix>:opportunities and keeps the latest
// under <prefix>:opportunities:latest.
type Redis struct {
	rdb RedisWriter
	key func(string) string
	ttl time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return newRedis(client.Underlying(), client.Key, ttl)
}

func newRedis(rdb RedisWriter, key func(string) string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, key: key, ttl: ttl}
}

func (r *Redis) Report(ctx context.Context, rep domain.Report) error {
	snap := snapshot{
		ScannedAt:     rep.StartedAt,
		DurationMS:    rep.Duration.Milliseconds(),
		Entities:      rep.Entities,
		Opportunities: rep.Opportunities,
	}
	if skips := rep.SkipCounts(); len(skips) > 0 {
		snap.Skipped = make(map[string]int, len(skips))
		for reason, n := range skips {
			snap.Skipped[string(reason)] = n
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunities: %w", err)
	}

	if err := r.rdb.Set(ctx, r.key(latestKey), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis: store opportunities: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.key(opportunitiesChannel), data).Err(); err != nil {
		return fmt.Errorf("redis: publish opportunities: %w", err)
	}
	return nil
}
