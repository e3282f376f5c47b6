package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rate-my-mr",
	Short: "rate-my-mr rates merge requests from the command line.",
	Long: `rate-my-mr computes the quality rating of a merge request: lines of code,
lint suppressions, cyclomatic complexity, a security scan and an AI summary.

Configuration is read from config.yaml and RMM_ prefixed environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File with environment variables to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print timing information")
}
