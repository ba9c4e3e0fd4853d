package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tweetpruner/pkg/auth"
	"tweetpruner/pkg/config"
	"tweetpruner/pkg/logger"
	"tweetpruner/pkg/pruner"
	"tweetpruner/pkg/ratelimit"
	"tweetpruner/pkg/twitter"
	"tweetpruner/pkg/ui"
)

var (
	screenName  string
	accountName string
	multiplier  float64
	permanent   []int64
	batchSize   int
	concurrency int
	maxTries    int
	rateLimit   int
	dryRun      bool
	skipPosts   bool
	skipLikes   bool
	logFile     string
)

// pruneCmd represents the prune command
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old tweets and unlike old likes",
	Long: `Walk the account's tweets and likes from newest to oldest, score each one
and remove everything older than its allowed age.

Credentials are taken from, in order:
  - TWITTER_* environment variables or the configuration file
  - the account stored with 'tweetpruner auth login'

Press Ctrl-C to stop; removals already in flight finish first.`,
	Example: `  # Preview what would be removed
  tweetpruner prune --dry-run

  # Keep two tweets forever and be gentler with everything else
  tweetpruner prune --permanent 1234567890,9876543210 --multiplier 14

  # Only clean up likes, four removals at a time
  tweetpruner prune --skip-posts --concurrency 4`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	addPruneFlags(pruneCmd.Flags())

	// bare "tweetpruner" runs a prune
	addPruneFlags(rootCmd.Flags())
	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = runPrune
}

func addPruneFlags(fs *pflag.FlagSet) {
	fs.StringVar(&screenName, "screen-name", "", "account to prune (default from config or TWITTER_SCREEN_NAME)")
	fs.StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	fs.Float64Var(&multiplier, "multiplier", 0, "allowed-age multiplier for tweets (default 7)")
	fs.Int64SliceVar(&permanent, "permanent", nil, "tweet ids that are never deleted")
	fs.IntVar(&batchSize, "batch-size", 0, "page size for timeline requests (default 10)")
	fs.IntVar(&concurrency, "concurrency", 0, "number of concurrent removals (default 8)")
	fs.IntVar(&maxTries, "max-tries", 0, "attempts per API call (default 5)")
	fs.IntVar(&rateLimit, "rate-limit", -1, "requests per minute, 0 for no pacing")
	fs.BoolVar(&dryRun, "dry-run", false, "log what would be removed without removing it")
	fs.BoolVar(&skipPosts, "skip-posts", false, "do not delete tweets")
	fs.BoolVar(&skipLikes, "skip-likes", false, "do not unlike tweets")
	fs.StringVar(&logFile, "log-file", "", "also write logs to this file")
}

// collectFlags returns only the flags the user actually set
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("screen-name") {
		flags["screen-name"] = screenName
	}
	if changed("multiplier") {
		flags["multiplier"] = multiplier
	}
	if changed("permanent") {
		flags["permanent"] = permanent
	}
	if changed("batch-size") {
		flags["batch-size"] = batchSize
	}
	if changed("concurrency") {
		flags["concurrency"] = concurrency
	}
	if changed("max-tries") {
		flags["max-tries"] = maxTries
	}
	if changed("rate-limit") {
		flags["requests-per-minute"] = rateLimit
	}
	if changed("dry-run") {
		flags["dry-run"] = dryRun
	}
	if changed("skip-posts") {
		flags["skip-posts"] = skipPosts
	}
	if changed("skip-likes") {
		flags["skip-likes"] = skipLikes
	}
	if changed("log-file") {
		flags["log-file"] = logFile
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

// loadPruneConfig layers flags, environment and file, fills missing
// credentials from the credential store, then validates
func loadPruneConfig(flags map[string]interface{}, store *auth.Manager) (*config.Config, error) {
	cfg, err := config.LoadUnvalidated(configFile, flags)
	if err != nil {
		return nil, err
	}

	if !cfg.Twitter.HasCredentials() && store != nil {
		var account *auth.Account
		switch {
		case accountName != "":
			account, err = store.Retrieve(accountName)
		case cfg.Twitter.ScreenName != "":
			account, err = store.Retrieve(cfg.Twitter.ScreenName)
		default:
			account, err = store.RetrieveDefault()
		}
		if err == nil {
			account.ApplyTo(&cfg.Twitter)
		}
	}

	if !cfg.Twitter.HasCredentials() {
		return nil, errors.New("no Twitter credentials found; run 'tweetpruner auth login' or set TWITTER_API_KEY, TWITTER_API_SECRET, TWITTER_ACCESS_TOKEN and TWITTER_ACCESS_TOKEN_SECRET")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	store, err := auth.NewManager()
	if err != nil {
		// env and config can still carry credentials
		store = nil
	}

	cfg, err := loadPruneConfig(collectFlags(cmd), store)
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	limiter, err := ratelimit.New(cfg.RateLimit.Algorithm, cfg.RateLimit.RequestsPerMinute)
	if err != nil {
		return err
	}

	client := twitter.NewClient(&cfg.Twitter, log,
		twitter.WithPageSize(cfg.Pagination.BatchSize),
		twitter.WithLimiter(limiter),
	)

	p, err := pruner.New(cfg, client, log)
	if err != nil {
		return err
	}

	ui.PrintInfo("Account", "@"+cfg.Twitter.ScreenName)
	ui.PrintInfo("Multiplier", strconv.FormatFloat(p.Policy().Multiplier(), 'f', -1, 64))
	if cfg.Removal.DryRun {
		ui.PrintWarning("Dry run: nothing will be removed")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.LogComponentStart(log, "tweetpruner", map[string]interface{}{
		"screen_name": cfg.Twitter.ScreenName,
		"dry_run":     cfg.Removal.DryRun,
		"concurrency": cfg.Removal.Concurrency,
	})

	summary, runErr := p.Run(ctx)
	ui.PrintSummary(summaryRows(summary))

	switch {
	case errors.Is(runErr, context.Canceled):
		ui.PrintWarning("Interrupted")
		return runErr
	case runErr != nil:
		log.WithError(runErr).Error("Prune failed")
		return runErr
	case summary.Failed() > 0:
		return fmt.Errorf("%d removals failed after retries (ids: %s)", summary.Failed(), failedIDList(summary))
	}

	ui.PrintSuccess("Done")
	return nil
}

// failedIDList renders every failed id so a rerun can be checked against it
func failedIDList(summary *pruner.Summary) string {
	var ids []string
	for _, report := range []*pruner.Report{summary.Posts, summary.Likes} {
		if report == nil {
			continue
		}
		for _, id := range report.FailedIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
	}
	return strings.Join(ids, ", ")
}

func summaryRows(summary *pruner.Summary) []ui.SweepRow {
	if summary == nil {
		return nil
	}

	var rows []ui.SweepRow
	for _, r := range []*pruner.Report{summary.Posts, summary.Likes} {
		if r == nil {
			continue
		}
		rows = append(rows, ui.SweepRow{
			Name:        r.Sweep,
			Visited:     r.Visited,
			Selected:    r.Selected,
			Removed:     r.Removed,
			AlreadyGone: r.AlreadyGone,
			Failed:      r.Failed,
			Skipped:     r.Skipped,
			DryRun:      r.DryRun,
			Duration:    r.Duration,
		})
	}
	return rows
}
