package postgres

//nolint:revive
import (
	"fmt"
	"medsys/config"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	maxIdleConnections = 10
	maxOpenConnections = 20
	connMaxLifetime    = 30 * time.Minute
)

// Connection splits reads from writes. Both point at the same server unless
// DB_POSTGRES_READ_* names a replica.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

type endpoint struct {
	name string
	cfg  config.PostgresEndpoint
	dsn  string
}

func New(cfg *config.Config) *Connection {
	pg := cfg.DB.Postgres

	read := endpoint{name: "read", cfg: pg.Read, dsn: pg.Read.DSN(pg.Prefix, nil)}
	write := endpoint{name: "write", cfg: pg.Write, dsn: pg.Write.DSN(pg.Prefix, nil)}

	return &Connection{
		Read:  mustConnect(read, pg.MaxRetry, pg.RetryWaitTime),
		Write: mustConnect(write, pg.MaxRetry, pg.RetryWaitTime),
	}
}

// Close releases both pools.
func (c *Connection) Close() error {
	if err := c.Read.Close(); err != nil {
		return fmt.Errorf("failed to close read pool: %w", err)
	}

	if err := c.Write.Close(); err != nil {
		return fmt.Errorf("failed to close write pool: %w", err)
	}

	return nil
}

func mustConnect(e endpoint, maxRetry, waitSeconds int) *sqlx.DB {
	attempts := max(1, maxRetry)

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		var db *sqlx.DB

		db, err = sqlx.Connect("postgres", e.dsn)
		if err == nil {
			db.SetMaxIdleConns(maxIdleConnections)
			db.SetMaxOpenConns(maxOpenConnections)
			db.SetConnMaxLifetime(connMaxLifetime)

			log.Info().Str("name", e.name).Str("host", e.cfg.Host).Str("dbName", e.cfg.Name).Msg("Connected to database")

			return db
		}

		log.Error().Err(err).Str("name", e.name).Str("host", e.cfg.Host).Int("attempt", attempt).
			Msg("Failed connecting to database, retrying")

		time.Sleep(time.Duration(waitSeconds) * time.Second)
	}

	log.Fatal().Err(err).Str("name", e.name).Msg("Giving up connecting to database")

	return nil
}
