package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/esparrago/internal/common"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when the lock is held elsewhere for longer than the wait budget.
var ErrNotObtained = errors.New("lock not obtained")

// RedisConfig configures the redis-backed lock.
type RedisConfig struct {
	Addr     string
	Password string
	Prefix   string
	TTL      time.Duration
	Wait     time.Duration
	DB       int
}

// Redis is a Locker shared by every process pointed at the same redis.
type Redis struct {
	client *redis.Client
	locker *redislock.Client
	logger *slog.Logger
	cfg    RedisConfig
}

// NewRedis connects to redis and returns a lock client.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: lock.redis.addr", common.ErrMissingConfig)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 10 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "esparrago:lock:"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, common.Upstream("redis ping", err)
	}

	return newRedisWithClient(client, cfg, logger), nil
}

func newRedisWithClient(client *redis.Client, cfg RedisConfig, logger *slog.Logger) *Redis {
	return &Redis{
		client: client,
		locker: redislock.New(client),
		logger: logger,
		cfg:    cfg,
	}
}

// Acquire implements Locker. It retries with linear backoff until cfg.Wait elapses.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(
			redislock.LinearBackoff(100*time.Millisecond),
			int(r.cfg.Wait/(100*time.Millisecond)),
		),
	}

	lk, err := r.locker.Obtain(ctx, r.cfg.Prefix+key, r.cfg.TTL, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, common.Upstream("obtain lock", err)
	}

	return func() {
		// Release with a fresh context so a canceled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lk.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.logger.Warn("failed to release lock", "key", key, "error", err)
		}
	}, nil
}

// Close closes the redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
