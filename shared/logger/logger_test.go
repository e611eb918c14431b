package logger_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"

	"medsys/config"
	"medsys/shared/logger"
)

func TestInitLogger(t *testing.T) {
	original := log.Logger
	defer func() { log.Logger = original }()

	logger.InitLogger()

	assert.Equal(t, zerolog.TraceLevel, zerolog.GlobalLevel())
}

func TestErrorWithStack(t *testing.T) {
	original := log.Logger
	defer func() { log.Logger = original }()

	var buf bytes.Buffer
	log.Logger = log.Output(&buf)

	logger.ErrorWithStack(errors.New("failed to save appointment"))

	assert.Contains(t, buf.String(), "failed to save appointment")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestSetLogLevel(t *testing.T) {
	original := log.Logger
	defer func() {
		log.Logger = original
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}()

	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{name: "debug", level: "debug", expected: zerolog.DebugLevel},
		{name: "warn", level: "warn", expected: zerolog.WarnLevel},
		{name: "empty defaults to info", level: "", expected: zerolog.InfoLevel},
		{name: "garbage defaults to info", level: "loud", expected: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Server.LogLevel = tt.level

			logger.SetLogLevel(cfg)

			assert.Equal(t, tt.expected, zerolog.GlobalLevel())
		})
	}
}

func TestSetLogLevelProductionUsesJSON(t *testing.T) {
	original := log.Logger
	defer func() {
		log.Logger = original
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}()

	cfg := &config.Config{}
	cfg.Server.Env = "production"
	cfg.Server.LogLevel = "info"
	cfg.App.Name = "medsys"

	logger.SetLogLevel(cfg)

	var buf bytes.Buffer
	log.Logger = log.Logger.Output(&buf)
	log.Info().Msg("booking engine ready")

	assert.Contains(t, buf.String(), `"app":"medsys"`)
	assert.Contains(t, buf.String(), `"message":"booking engine ready"`)
}
