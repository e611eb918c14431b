package main

import (
	"context"
	"medsys/config"
	"medsys/di"
	"medsys/shared/logger"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := di.InitializeNotifier()
	consumer.Run(ctx)

	log.Info().Msg("Notifier stopped.")
}
