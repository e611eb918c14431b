package helper

//nolint:revive
import (
	"errors"
	"fmt"
	"medsys/config"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

type Action string

const (
	ActionUp      Action = "up"
	ActionDown    Action = "down"
	ActionStepUp  Action = "step-up"
	ActionDrop    Action = "drop"
	ActionVersion Action = "version"
)

const migrationSource = "file://migrations/postgres"

// ConnectionString builds the golang-migrate DSN for the write database.
func ConnectionString(config *config.Config) string {
	pg := config.DB.Postgres

	var extra url.Values
	if pg.MigrationTable != "" {
		extra = url.Values{"x-migrations-table": {pg.MigrationTable}}
	}

	return pg.Write.DSN(pg.Prefix, extra)
}

func getConnection(config *config.Config) (*migrate.Migrate, error) {
	mig, err := migrate.New(migrationSource, ConnectionString(config))
	if err != nil {
		return nil, fmt.Errorf("error creating migrate instance: %w", err)
	}

	return mig, nil
}

func Runner(config *config.Config, action Action) error {
	mig, err := getConnection(config)
	if err != nil {
		return err
	}

	defer mig.Close()

	return run(mig, action)
}

func run(mig *migrate.Migrate, action Action) error {
	var err error

	switch action {
	case ActionUp:
		err = mig.Up()
	case ActionDown:
		err = mig.Steps(-1)
	case ActionStepUp:
		err = mig.Steps(1)
	case ActionDrop:
		err = mig.Down()
	case ActionVersion:
		version, dirty, verErr := mig.Version()
		if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
			return fmt.Errorf("error reading migration version: %w", verErr)
		}

		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current migration version")

		return nil
	default:
		return fmt.Errorf("unknown migration action %q", action)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migration %s: %w", action, err)
	}

	log.Info().Str("action", string(action)).Msg("Database migration completed successfully")

	return nil
}
