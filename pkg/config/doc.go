// Package config loads the pruner configuration.
//
// Sources are layered, highest priority first: command line flags,
// environment variables, .env files, a YAML file and the defaults.
//
//	cfg, err := config.Load("", nil)
//
// Flags are passed as a map keyed by flag name. Only keys present in the
// map override the loaded values:
//
//	flags := map[string]interface{}{
//		"screen-name": "jack",
//		"multiplier":  14.0,
//		"permanent":   []int64{20},
//		"dry-run":     true,
//	}
//	cfg, err := config.Load("/path/to/tweetpruner.yaml", flags)
//
// Environment variables:
//
//	TWITTER_API_KEY, TWITTER_API_SECRET        app credentials
//	TWITTER_ACCESS_TOKEN, TWITTER_ACCESS_TOKEN_SECRET
//	TWITTER_SCREEN_NAME                        account to prune
//	MAX_TWEET_AGE_MULTIPLIER                   allowed-age multiplier
//	TWEETPRUNER_PERMANENT_IDS                  comma separated tweet ids
//	TWEETPRUNER_PERMANENT_REGEX                keep tweets matching this
//	TWEETPRUNER_CONCURRENCY                    removal workers
//	TWEETPRUNER_REQUESTS_PER_MINUTE            request pacing, 0 to disable
//	TWEETPRUNER_DRY_RUN                        "true" or "1"
//	TWEETPRUNER_LOG_LEVEL                      debug, info, warn, error
//
// Use LoadUnvalidated when credentials may still be filled in from a
// credential store before Validate runs.
package config
