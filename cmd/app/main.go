package main

import (
	"medsys/config"
	"medsys/di"
	"medsys/helper"
	"medsys/shared/logger"

	"github.com/rs/zerolog/log"
)

// @title						Medsys API
// @version					1.0
// @description				Doctor appointment booking engine.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.DB.Postgres.AutoMigrate {
		if err := helper.Runner(cfg, helper.ActionUp); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	http := di.InitializeService()
	http.Serve()
}
