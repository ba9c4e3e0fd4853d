package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// MaxBatchSize is the largest page size the timeline endpoints accept
	MaxBatchSize = 200

	// MaxConcurrency caps the removal worker pool
	MaxConcurrency = 64
)

// Config holds all configuration options for the pruner
type Config struct {
	Twitter    TwitterConfig    `yaml:"twitter" json:"twitter"`
	Retention  RetentionConfig  `yaml:"retention" json:"retention"`
	Retry      RetryConfig      `yaml:"retry" json:"retry"`
	Pagination PaginationConfig `yaml:"pagination" json:"pagination"`
	Removal    RemovalConfig    `yaml:"removal" json:"removal"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// TwitterConfig holds the credential set and API endpoints.
// The credentials are passed through to the request signer untouched.
type TwitterConfig struct {
	APIKey            string        `yaml:"api_key" json:"api_key"`
	APISecret         string        `yaml:"api_secret" json:"api_secret"`
	AccessToken       string        `yaml:"access_token" json:"access_token"`
	AccessTokenSecret string        `yaml:"access_token_secret" json:"access_token_secret"`
	ScreenName        string        `yaml:"screen_name" json:"screen_name"`
	APIBaseURL        string        `yaml:"api_base_url" json:"api_base_url"`
	APIV2BaseURL      string        `yaml:"api_v2_base_url" json:"api_v2_base_url"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

// HasCredentials reports whether all four OAuth values are present
func (t TwitterConfig) HasCredentials() bool {
	return t.APIKey != "" && t.APISecret != "" && t.AccessToken != "" && t.AccessTokenSecret != ""
}

// RetentionConfig tunes which items are kept
type RetentionConfig struct {
	PermanentIDs          []int64  `yaml:"permanent" json:"permanent"`
	MaxTweetAgeMultiplier float64  `yaml:"max_tweet_age_multiplier" json:"max_tweet_age_multiplier"`
	PermanentPatterns     []string `yaml:"permanent_regex" json:"permanent_regex"`
	MentionBonusDays      int      `yaml:"mention_bonus_days" json:"mention_bonus_days"`
	SkipPosts             bool     `yaml:"skip_posts" json:"skip_posts"`
	SkipLikes             bool     `yaml:"skip_likes" json:"skip_likes"`
}

// RetryConfig holds the backoff tuning for every remote call
type RetryConfig struct {
	MinDelay time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
	MaxTries int           `yaml:"max_tries" json:"max_tries"`
}

// PaginationConfig controls request granularity of the timeline walk
type PaginationConfig struct {
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// RemovalConfig controls the delete/unlike fan-out
type RemovalConfig struct {
	Concurrency int  `yaml:"concurrency" json:"concurrency"`
	DryRun      bool `yaml:"dry_run" json:"dry_run"`
}

// RateLimitConfig paces outgoing requests. Zero disables pacing.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	// Algorithm is "sliding_window" (default) or "token_bucket"
	Algorithm string `yaml:"algorithm" json:"algorithm"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			APIBaseURL:   "https://api.twitter.com/1.1",
			APIV2BaseURL: "https://api.twitter.com/2",
			Timeout:      30 * time.Second,
		},
		Retention: RetentionConfig{
			MaxTweetAgeMultiplier: 7.0,
			MentionBonusDays:      7,
		},
		Retry: RetryConfig{
			MinDelay: 1 * time.Second,
			MaxDelay: 60 * time.Second,
			MaxTries: 5,
		},
		Pagination: PaginationConfig{
			BatchSize: 10,
		},
		Removal: RemovalConfig{
			Concurrency: 8,
		},
		RateLimit: RateLimitConfig{
			Algorithm: "sliding_window",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// The TWITTER_* names match the variables the account owner already exports.
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setString("TWITTER_API_KEY", &c.Twitter.APIKey)
	setString("TWITTER_API_SECRET", &c.Twitter.APISecret)
	setString("TWITTER_ACCESS_TOKEN", &c.Twitter.AccessToken)
	setString("TWITTER_ACCESS_TOKEN_SECRET", &c.Twitter.AccessTokenSecret)
	setString("TWITTER_SCREEN_NAME", &c.Twitter.ScreenName)
	setString("TWEETPRUNER_LOG_LEVEL", &c.Logging.Level)

	if v := os.Getenv("MAX_TWEET_AGE_MULTIPLIER"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_TWEET_AGE_MULTIPLIER: %w", err))
		} else {
			c.Retention.MaxTweetAgeMultiplier = m
		}
	}

	if v := os.Getenv("TWEETPRUNER_PERMANENT_IDS"); v != "" {
		ids, err := ParseIDList(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TWEETPRUNER_PERMANENT_IDS: %w", err))
		} else {
			c.Retention.PermanentIDs = append(c.Retention.PermanentIDs, ids...)
		}
	}

	if v := os.Getenv("TWEETPRUNER_PERMANENT_REGEX"); v != "" {
		c.Retention.PermanentPatterns = append(c.Retention.PermanentPatterns, v)
	}

	if v := os.Getenv("TWEETPRUNER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TWEETPRUNER_CONCURRENCY: %w", err))
		} else if n > 0 {
			c.Removal.Concurrency = n
		}
	}

	if v := os.Getenv("TWEETPRUNER_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TWEETPRUNER_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}

	if v := os.Getenv("TWEETPRUNER_DRY_RUN"); v != "" {
		c.Removal.DryRun = strings.EqualFold(v, "true") || v == "1"
	}

	return errors.Join(errs...)
}

// ParseIDList parses a comma or whitespace separated list of status ids
func ParseIDList(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LoadFromFile loads configuration from a YAML (or JSON) file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile returns the first config file found in the standard
// locations, or "" if there is none
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".tweetpruner.yaml",
		".tweetpruner.yml",
		"tweetpruner.json",
		filepath.Join(home, ".config", "tweetpruner", "config.yaml"),
		filepath.Join(home, ".config", "tweetpruner", "config.yml"),
		filepath.Join(home, ".tweetpruner.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Twitter.ScreenName == "" {
		errs = append(errs, errors.New("twitter screen name is required"))
	}
	if c.Twitter.Timeout <= 0 {
		errs = append(errs, errors.New("twitter timeout must be positive"))
	}

	if !(c.Retention.MaxTweetAgeMultiplier > 0) {
		errs = append(errs, fmt.Errorf("max tweet age multiplier must be positive, got %v", c.Retention.MaxTweetAgeMultiplier))
	}
	if c.Retention.MentionBonusDays < 0 {
		errs = append(errs, errors.New("mention bonus days cannot be negative"))
	}
	for _, p := range c.Retention.PermanentPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("invalid permanent pattern %q: %w", p, err))
		}
	}
	if c.Retention.SkipPosts && c.Retention.SkipLikes {
		errs = append(errs, errors.New("skipping both posts and likes leaves nothing to do"))
	}

	if c.Retry.MinDelay <= 0 {
		errs = append(errs, errors.New("retry min delay must be positive"))
	}
	if c.Retry.MaxDelay < c.Retry.MinDelay {
		errs = append(errs, errors.New("retry max delay must not be below min delay"))
	}
	if c.Retry.MaxTries < 1 {
		errs = append(errs, errors.New("retry max tries must be at least 1"))
	}

	if c.Pagination.BatchSize <= 0 || c.Pagination.BatchSize > MaxBatchSize {
		errs = append(errs, fmt.Errorf("batch size must be between 1 and %d", MaxBatchSize))
	}

	if c.Removal.Concurrency <= 0 || c.Removal.Concurrency > MaxConcurrency {
		errs = append(errs, fmt.Errorf("removal concurrency must be between 1 and %d", MaxConcurrency))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	switch c.RateLimit.Algorithm {
	case "", "sliding_window", "token_bucket":
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit algorithm %q", c.RateLimit.Algorithm))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override the loaded values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["screen-name"].(string); ok && v != "" {
		c.Twitter.ScreenName = v
	}
	if v, ok := flags["multiplier"].(float64); ok {
		c.Retention.MaxTweetAgeMultiplier = v
	}
	if v, ok := flags["permanent"].([]int64); ok && len(v) > 0 {
		c.Retention.PermanentIDs = append(c.Retention.PermanentIDs, v...)
	}
	if v, ok := flags["batch-size"].(int); ok && v > 0 {
		c.Pagination.BatchSize = v
	}
	if v, ok := flags["concurrency"].(int); ok && v > 0 {
		c.Removal.Concurrency = v
	}
	if v, ok := flags["max-tries"].(int); ok && v > 0 {
		c.Retry.MaxTries = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["dry-run"].(bool); ok {
		c.Removal.DryRun = v
	}
	if v, ok := flags["skip-posts"].(bool); ok {
		c.Retention.SkipPosts = v
	}
	if v, ok := flags["skip-likes"].(bool); ok {
		c.Retention.SkipLikes = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	cfg, err := LoadUnvalidated(configPath, flags)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadUnvalidated runs the same layering as Load but leaves validation to the
// caller, so credentials can still be filled in from a credential store.
func LoadUnvalidated(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tweetpruner.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	return cfg, nil
}
