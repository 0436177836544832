package cmd

import (
	"fmt"

	"github.com/josephlewis42/visionsh/commands"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtins and the script commands that are available.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		log := newAppLogger(cmd.ErrOrStderr())
		configuration, err := loadConfig(log)
		if err != nil {
			return err
		}

		sh, err := commands.NewShell(commands.Options{
			Config: configuration,
			Lines:  commands.NewScannerSource(cmd.InOrStdin(), nil),
			Log:    log,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, entry := range commands.ListBuiltins() {
			fmt.Fprintf(w, "builtin:%s\n", entry.Name)
		}
		for _, name := range sh.Completer(afero.NewOsFs()).All() {
			if !commands.IsBuiltin(name) {
				fmt.Fprintf(w, "script:%s\n", name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
