package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"tweetpruner/pkg/logger"
	"tweetpruner/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tweetpruner",
	Short: "Delete old tweets and likes that nobody engaged with",
	Long: `tweetpruner walks your Twitter timeline and likes from newest to oldest
and removes what has outlived its welcome.

Every tweet gets an allowed age that grows with its likes, retweets, quotes
and replies; liked tweets get a short allowed age that grows with their
popularity. Anything older than its allowed age is deleted or unliked.
Your pinned tweet and any tweet you mark as permanent are never touched.

Features:
  - Engagement-aware retention with a tunable multiplier
  - Permanent tweets by id or by text pattern
  - Retries with log-spaced backoff on transient API failures
  - Concurrent removals with configurable limits
  - Dry-run mode to preview what would be removed
  - Secure credential storage using the system keychain`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version

		if quiet {
			ui.SetQuietMode(true)
			if logLevel == "" {
				logLevel = "error"
			}
		}
		if noColor {
			ui.SetColor(false)
		}

		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.tweetpruner.yaml or ~/.config/tweetpruner/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`tweetpruner {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
