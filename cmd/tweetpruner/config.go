package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tweetpruner/pkg/config"
	"tweetpruner/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tweetpruner configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (TWITTER_*, TWEETPRUNER_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.tweetpruner.yaml' in the current directory
unless a different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source.

Credentials are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Check the configuration file and environment for syntax errors
and out-of-range values.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# tweetpruner configuration
#
# Credentials may also come from TWITTER_API_KEY, TWITTER_API_SECRET,
# TWITTER_ACCESS_TOKEN, TWITTER_ACCESS_TOKEN_SECRET and TWITTER_SCREEN_NAME,
# or from 'tweetpruner auth login'.

twitter:
  screen_name: ""
  api_key: ""
  api_secret: ""
  access_token: ""
  access_token_secret: ""
  timeout: 30s

retention:
  # Tweet ids that are never deleted. The pinned tweet is always kept.
  permanent: []
  # Tweets whose text matches any of these expressions are kept
  permanent_regex: []
  # Scales the allowed age of your own tweets
  max_tweet_age_multiplier: 7
  # Extra days for liked tweets that mention you
  mention_bonus_days: 7
  skip_posts: false
  skip_likes: false

retry:
  min_delay: 1s
  max_delay: 60s
  max_tries: 5

pagination:
  # Items per timeline request, 1-200
  batch_size: 10

removal:
  # Removals in flight at once, 1-64
  concurrency: 8
  dry_run: false

rate_limit:
  # 0 disables pacing
  requests_per_minute: 0
  # sliding_window or token_bucket
  algorithm: sliding_window

logging:
  # debug, info, warn, error
  level: info
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".tweetpruner.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	// credentials may end up in here
	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set your screen name, or run 'tweetpruner auth login'")
	fmt.Println("2. Run 'tweetpruner config validate'")
	fmt.Println("3. Preview with 'tweetpruner prune --dry-run'")
	return nil
}

// maskedConfig returns a copy of cfg safe to print
func maskedConfig(cfg *config.Config) config.Config {
	display := *cfg
	mask := func(s string) string {
		switch {
		case s == "":
			return ""
		case len(s) > 8:
			return s[:4] + "..." + s[len(s)-4:]
		default:
			return "***"
		}
	}
	display.Twitter.APIKey = mask(display.Twitter.APIKey)
	display.Twitter.APISecret = mask(display.Twitter.APISecret)
	display.Twitter.AccessToken = mask(display.Twitter.AccessToken)
	display.Twitter.AccessTokenSecret = mask(display.Twitter.AccessTokenSecret)
	return display
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadUnvalidated(configFile, nil)
	if err != nil {
		return err
	}

	display := maskedConfig(cfg)
	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		path = "(none found)"
	}
	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (TWITTER_*, TWEETPRUNER_*)")
	fmt.Println("3. .env files")
	fmt.Printf("4. Configuration file: %s\n", path)
	fmt.Println("5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path != "" {
		ui.PrintInfo("Validating configuration", path)
	} else {
		ui.PrintInfo("Validating configuration", "environment and defaults")
	}

	cfg, err := config.LoadUnvalidated(path, nil)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration has errors:", "")
		for _, e := range splitJoined(err) {
			fmt.Printf("  - %s\n", e)
		}
		return errors.New("configuration is invalid")
	}

	var warnings []string
	if !cfg.Twitter.HasCredentials() {
		warnings = append(warnings, "Twitter credentials not configured here; 'tweetpruner auth login' can supply them")
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}
	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Screen name: @%s\n", cfg.Twitter.ScreenName)
	fmt.Printf("  Multiplier: %g\n", cfg.Retention.MaxTweetAgeMultiplier)
	fmt.Printf("  Permanent ids: %d, patterns: %d\n", len(cfg.Retention.PermanentIDs), len(cfg.Retention.PermanentPatterns))
	fmt.Printf("  Concurrency: %d\n", cfg.Removal.Concurrency)
	fmt.Printf("  Max tries: %d\n", cfg.Retry.MaxTries)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}

// splitJoined unpacks an errors.Join result into its parts
func splitJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
