package logger

import (
	"medsys/config"
	"medsys/shared/constant"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs a human readable console logger. SetLogLevel switches
// to JSON lines once the environment is known to be production.
func InitLogger() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}

func ErrorWithStack(err error) {
	log.Error().Msgf("%+v", errors.WithStack(err))
}

// SetLogLevel applies SERVER_LOG_LEVEL, defaulting to info.
func SetLogLevel(config *config.Config) {
	if config.Server.Env == constant.ServerEnvProduction {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("app", config.App.Name).Logger()
	}

	level, err := zerolog.ParseLevel(config.Server.LogLevel)
	if err != nil || config.Server.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	log.Debug().Str("loglevel", level.String()).Str("env", config.Server.Env).Msg("Log level configured.")
}
