package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var verbose bool
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	rootCmd := &cobra.Command{
		Use:           "expo",
		Short:         "Exposure detection (expo): match published keys against local sightings",
		Long:          "expo keeps this device's daily tracing keys, records the rolling identifiers it has seen nearby, and checks published diagnosis keys for exposure without revealing when or where a contact happened.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log detection progress to stderr")

	logger := slog.New(slog.NewTextHandler(stderrWriter{errOut: rootCmd.ErrOrStderr}, &slog.HandlerOptions{Level: level}))

	app, err := wireApp(logger)
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		rootCmd.AddCommand(newVersionCmd())
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newStateCmd(app),
		newConsentCmd(app),
		newKeysCmd(app),
		newObserveCmd(app),
		newDetectCmd(app),
	)

	return rootCmd
}
