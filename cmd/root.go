package cmd

import (
	"context"
	"io"
	"os"

	"github.com/josephlewis42/visionsh/commands"
	"github.com/josephlewis42/visionsh/core/config"
	"github.com/josephlewis42/visionsh/core/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgPath string
	command string
	verbose bool
)

// exitStatus is what main exits with once Execute returns.
var exitStatus int

func newAppLogger(w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

func configDir() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.DefaultDir()
}

func loadConfig(log zerolog.Logger) (*config.Configuration, error) {
	configuration, err := config.LoadOrDefault(configDir())
	if err != nil {
		return nil, err
	}
	if configuration.Dir() == "" {
		log.Debug().Str("dir", configDir()).Msg("no config found, using defaults; run init to create one")
	}
	return configuration, nil
}

// openEvents returns the event logger and a function that closes it.
func openEvents(configuration *config.Configuration, log zerolog.Logger) (*logger.Logger, func()) {
	fd, err := configuration.OpenEventLog()
	if err != nil {
		log.Warn().Err(err).Msg("event log disabled")
		return logger.Discard(), func() {}
	}
	if fd == nil {
		return logger.Discard(), func() {}
	}
	return logger.NewJsonLinesLogRecorder(fd), func() { fd.Close() }
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "visionsh",
	Short: "VisionOS interactive shell",
	Long: `An interactive shell that runs system programs, pipelines and the
VisionOS computer vision (cv-*) and bash (sh-*) script commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		log := newAppLogger(cmd.ErrOrStderr())
		configuration, err := loadConfig(log)
		if err != nil {
			return err
		}

		events, closeEvents := openEvents(configuration, log)
		defer closeEvents()

		interactive := command == "" && term.IsTerminal(int(os.Stdin.Fd()))
		sh, err := commands.NewShell(commands.Options{
			Config:      configuration,
			Stdin:       os.Stdin,
			Stdout:      os.Stdout,
			Stderr:      os.Stderr,
			Interactive: interactive,
			Events:      events,
			Log:         log,
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if command != "" {
			exitStatus = sh.RunCommand(ctx, command)
			return nil
		}
		exitStatus = sh.Run(ctx)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// It returns the status the process should exit with.
func Execute() int {
	cobra.CheckErr(rootCmd.Execute())
	return exitStatus
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default is the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command line and exit with its status")
}
