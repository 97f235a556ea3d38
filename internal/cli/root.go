// Package cli provides the command-line interface for intake-sources.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jaculabilis/intake-sources/internal/config"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// Exit statuses returned by Execute.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

var (
	configPath string
	envFile    string
	logLevel   string

	stdout    io.Writer = os.Stdout
	stderr    io.Writer = os.Stderr
	lookupEnv           = os.LookupEnv
)

var rootCmd = &cobra.Command{
	Use:   "intake-sources",
	Short: "Fetch items from web sources as intake JSON lines",
	Long: "intake-sources fetches Hacker News, reddit listings, and RSS/Atom feeds " +
		"and writes one JSON item per line to stdout. Settings come from an optional " +
		"YAML file, an optional .env file, and the environment.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Fprintf(stdout, "intake-sources %s (%s)\n", Version, Commit)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&envFile, "env-file", "", "path to a .env file loaded into the environment")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", config.ErrConfig, err)
	})

	rootCmd.AddCommand(versionCmd)
	for _, cmd := range sourceCommands() {
		rootCmd.AddCommand(cmd)
	}
}

// Execute runs the root command and returns the process exit status.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "intake-sources: %v\n", err)
	}
	return ExitCode(err)
}

// ExitCode maps a command error to an exit status: configuration errors
// exit 2, everything else 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrConfig):
		return ExitConfig
	default:
		return ExitFailure
	}
}
