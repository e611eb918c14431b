package main

import (
	"medsys/config"
	"medsys/helper"
	"medsys/shared/logger"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func actionCmd(action helper.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return helper.Runner(config.Get(), action)
		},
	}
}

func main() {
	logger.InitLogger()

	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Run postgres schema migrations",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.SetLogLevel(config.Get())
		},
	}

	rootCmd.AddCommand(
		actionCmd(helper.ActionUp, "Apply all pending migrations"),
		actionCmd(helper.ActionDown, "Roll back the latest migration"),
		actionCmd(helper.ActionStepUp, "Apply the next pending migration"),
		actionCmd(helper.ActionDrop, "Roll back every migration"),
		actionCmd(helper.ActionVersion, "Print the current migration version"),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
}
