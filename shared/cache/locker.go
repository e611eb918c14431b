package cache

//go:generate go run go.uber.org/mock/mockgen -source=./locker.go -destination=./mocks/locker_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"medsys/config"
	"medsys/infras/otel"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const lockKeyPrefix = "lock"

var ErrLockNotAcquired = errors.New("lock not acquired")

// Locker guards a critical section with a short-lived distributed lock.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type redisLocker struct {
	client *redis.Client
	otel   otel.Otel
	ttl    time.Duration
}

type noopLocker struct{}

// NewLocker returns a redis backed locker when the booking slot lock is enabled,
// otherwise a locker that runs fn directly.
func NewLocker(client *redis.Client, ot otel.Otel, cfg *config.Config) Locker {
	if !cfg.Booking.SlotLock.Enable {
		return noopLocker{}
	}

	ttl := time.Duration(cfg.Booking.SlotLock.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &redisLocker{
		client: client,
		otel:   ot,
		ttl:    ttl,
	}
}

func (noopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) (err error) {
	ctx, scope := l.otel.NewScope(ctx, otelScopeName, otelScopeName+".WithLock")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	lockKey := lockKeyPrefix + ":" + key
	token := uuid.NewString()

	scope.SetAttribute(otelCacheKeyAttribute, lockKey)

	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		log.Error().Err(err).Str("key", lockKey).Msg("failed to acquire lock")

		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// release with a detached context so a cancelled request still frees the key
		c := context.WithoutCancel(ctx)

		if _, relErr := unlockScript.Run(c, l.client, []string{lockKey}, token).Result(); relErr != nil && !errors.Is(relErr, redis.Nil) {
			log.Error().Err(relErr).Str("key", lockKey).Msg("failed to release lock")
		}
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}
