package shared

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"medsys/shared/cache"
	"medsys/shared/constant"
	"medsys/shared/dto"
)

const cacheKeySeparator = ":"

// CalculateTotalPage never returns less than one page.
func CalculateTotalPage(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 1
	}

	return (total + limit - 1) / limit
}

// TransformFields collects the non-zero db-tagged fields of an update request
// and stamps the modification audit columns. data may be a struct or a
// pointer to one.
func TransformFields(data any, actor string, now time.Time) map[string]any {
	val := reflect.Indirect(reflect.ValueOf(data))
	fields := map[string]any{
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: actor,
	}

	if val.Kind() != reflect.Struct {
		return fields
	}

	for i := range val.NumField() {
		tag := val.Type().Field(i).Tag.Get("db")
		if tag == "" || tag == "-" || val.Field(i).IsZero() {
			continue
		}

		fields[tag] = val.Field(i).Interface()
	}

	return fields
}

func FilterByID(id, fieldID, table string) dto.FilterGroup {
	return dto.And(dto.Filter{Field: fieldID, Value: id, Operator: dto.FilterOperatorEq, Table: table})
}

// BuildCacheKey joins a prefix and its parts into a single redis key.
func BuildCacheKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), cacheKeySeparator)
}

// BuildCacheKeyWithQuery hashes the paging params together with the rendered
// filter, so two filters binding the same values to different columns differ.
func BuildCacheKeyWithQuery(prefix string, params dto.QueryParams, filter dto.FilterGroup) string {
	where, args := filter.GetWhereClause()

	raw, err := json.Marshal(struct {
		Params dto.QueryParams `json:"params"`
		Where  string          `json:"where"`
		Args   map[string]any  `json:"args"`
	}{Params: params, Where: where, Args: args})
	if err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to marshal cache key")

		return prefix
	}

	sum := sha1.Sum(raw) //nolint:gosec

	return BuildCacheKey(prefix, hex.EncodeToString(sum[:]))
}

// InvalidateCaches removes every key under prefix. Errors are logged only.
func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, prefix string) {
	if err := redisCache.Clear(ctx, prefix+cacheKeySeparator+constant.Asterix); err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to invalidate caches")
	}
}

// SaveCacheAsync stores value under key in the background. value is boxed
// before the goroutine starts, so callers may keep mutating their own copy.
func SaveCacheAsync(ctx context.Context, redisCache cache.RedisCache, key string, value any, ttl int) {
	c := context.WithoutCancel(ctx)

	go func() {
		if err := redisCache.Save(c, key, value, ttl); err != nil {
			log.Error().Err(err).Str("cacheKey", key).Msg("failed to save cache")
		}
	}()
}
