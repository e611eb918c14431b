package redis

import (
	"context"
	"net"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"medsys/config"
)

const (
	pingTimeout  = 5 * time.Second
	dialTimeout  = 5 * time.Second
	readTimeout  = 3 * time.Second
	writeTimeout = 3 * time.Second
)

// New connects to the primary Redis node backing the response cache,
// the rate limiter and the slot locks. The process exits if Redis is unreachable.
func New(config *config.Config) *goRedis.Client {
	primary := config.Cache.Redis.Primary
	addr := net.JoinHostPort(primary.Host, primary.Port)

	client := goRedis.NewClient(&goRedis.Options{
		Addr:         addr,
		Password:     primary.Password,
		DB:           primary.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", addr).Msg("Failed to connect to Redis")
	}

	log.Info().
		Int("db", primary.DB).
		Str("addr", addr).
		Msg("Connected to Redis")

	return client
}
