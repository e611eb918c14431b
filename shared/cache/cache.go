package cache

//go:generate go run go.uber.org/mock/mockgen -source=./cache.go -destination=./mocks/cache_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"medsys/infras/otel"
)

const (
	otelScopeName         = "cache"
	otelCacheKeyAttribute = "cache.key"
	clearBatchSize        = 100
)

// Nil is returned by Get on a cache miss.
const Nil = redis.Nil

// RedisCache stores JSON encoded read models. Strings are stored raw.
// duration is in seconds; zero or less keeps the key until it is cleared.
type RedisCache interface {
	Save(ctx context.Context, key string, value any, duration int) (err error)
	Get(ctx context.Context, key string, value any) (err error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, prefix string) error
}

type redisCache struct {
	client redis.UniversalClient
	otel   otel.Otel
}

func NewRedisCache(client *redis.Client, ot otel.Otel) RedisCache {
	return &redisCache{
		client: client,
		otel:   ot,
	}
}

func (cache *redisCache) scope(ctx context.Context, op, key string) (context.Context, otel.Scope) {
	ctx, scope := cache.otel.NewScope(ctx, otelScopeName, otelScopeName+"."+op)
	scope.SetAttribute(otelCacheKeyAttribute, key)

	return ctx, scope
}

func encode(value any) ([]byte, error) {
	if s, ok := value.(string); ok {
		return []byte(s), nil
	}

	return json.Marshal(value) //nolint:wrapcheck
}

func decode(raw string, value any) error {
	if s, ok := value.(*string); ok {
		*s = raw

		return nil
	}

	return json.Unmarshal([]byte(raw), value) //nolint:wrapcheck
}

// Clear unlinks every key matching pattern, in batches.
func (cache *redisCache) Clear(ctx context.Context, pattern string) (err error) {
	ctx, scope := cache.scope(ctx, "Clear", pattern)
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	batch := make([]string, 0, clearBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := cache.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to unlink cache keys: %w", err)
		}

		batch = batch[:0]

		return nil
	}

	iter := cache.client.Scan(ctx, 0, pattern, clearBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())

		if len(batch) == clearBatchSize {
			if err = flush(); err != nil {
				break
			}
		}
	}

	if err == nil {
		err = errors.Join(iter.Err(), flush())
	}

	if err != nil {
		log.Error().Err(err).Str("pattern", pattern).Msg("failed to clear cache")

		return fmt.Errorf("failed to clear cache: %w", err)
	}

	return nil
}

func (cache *redisCache) Delete(ctx context.Context, key string) (err error) {
	ctx, scope := cache.scope(ctx, "Delete", key)
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = cache.client.Del(ctx, key).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to delete cache")

		return fmt.Errorf("failed to delete cache value: %w", err)
	}

	return nil
}

// Get wraps Nil on a miss; check it with errors.Is.
func (cache *redisCache) Get(ctx context.Context, key string, value any) (err error) {
	ctx, scope := cache.scope(ctx, "Get", key)
	defer scope.End()

	raw, err := cache.client.Get(ctx, key).Result()
	if errors.Is(err, Nil) {
		scope.AddEvent("cache miss")

		return fmt.Errorf("cache miss for %s: %w", key, err)
	}

	defer func() { scope.TraceIfError(err) }()

	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to get cache")

		return fmt.Errorf("failed to get cache value: %w", err)
	}

	if err = decode(raw, value); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to decode cache")

		return fmt.Errorf("failed to decode cache value: %w", err)
	}

	return nil
}

func (cache *redisCache) Save(ctx context.Context, key string, value any, duration int) (err error) {
	ctx, scope := cache.scope(ctx, "Save", key)
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	raw, err := encode(value)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to encode cache")

		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	if err = cache.client.Set(ctx, key, raw, time.Duration(max(duration, 0))*time.Second).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to set cache")

		return fmt.Errorf("failed to set cache value: %w", err)
	}

	log.Debug().Str("key", key).Int("ttlSeconds", duration).Msg("cache saved")

	return nil
}
