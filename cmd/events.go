package cmd

import (
	"fmt"

	"github.com/josephlewis42/visionsh/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the shell event log.",
}

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Show a report of events.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig(newAppLogger(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}

		fd, err := configuration.ReadEventLog()
		if err != nil {
			return err
		}
		defer fd.Close()

		report := logger.NewReport()
		if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return nil
	},
}

var sessionsCommand = &cobra.Command{
	Use:   "sessions [SESSION_ID]",
	Short: "Show the command lines run in each session.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig(newAppLogger(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}

		fd, err := configuration.ReadEventLog()
		if err != nil {
			return err
		}
		defer fd.Close()

		var sessions logger.SessionCommands
		if err := logger.ReadJSONLinesLog(fd, sessions.Update); err != nil {
			return err
		}

		if len(args) == 1 {
			for _, line := range sessions.Get(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		}

		out, err := yaml.Marshal(&sessions)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(reportCommand)
	eventsCmd.AddCommand(sessionsCommand)
}
