package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/set-night/turbostart/internal/config"
)

const keyPrefix = "turbostart:bot:"

type Redis struct {
	rdb *redis.Client
}

// NewRedis connects using a redis:// URL and verifies the connection.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)
	return &Redis{rdb: rdb}, nil
}

func awaitingKey(userID int64) string { return fmt.Sprintf("%sawaiting:%d", keyPrefix, userID) }
func rateKey(userID int64) string     { return fmt.Sprintf("%srate:%d", keyPrefix, userID) }

func (r *Redis) SetAwaitingTitle(ctx context.Context, userID int64, awaiting bool) error {
	if !awaiting {
		return r.rdb.Del(ctx, awaitingKey(userID)).Err()
	}
	return r.rdb.Set(ctx, awaitingKey(userID), "1", config.BotSessionTTL).Err()
}

func (r *Redis) AwaitingTitle(ctx context.Context, userID int64) (bool, error) {
	err := r.rdb.Get(ctx, awaitingKey(userID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get session: %w", err)
	}
	return true, nil
}

// hitScript increments the counter and arms its expiry in one step. A
// counter left without a TTL is re-armed on the next hit.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func (r *Redis) Hit(ctx context.Context, userID int64, window time.Duration) (int64, error) {
	n, err := hitScript.Run(ctx, r.rdb, []string{rateKey(userID)}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("incr rate counter: %w", err)
	}
	return n, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
