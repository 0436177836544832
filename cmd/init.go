package cmd

import (
	"github.com/josephlewis42/visionsh/core/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// initCmd intializes the shell configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the config directory.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		log := newAppLogger(cmd.ErrOrStderr())
		if !verbose {
			log = log.Level(zerolog.InfoLevel)
		}
		return config.Initialize(configDir(), log)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
