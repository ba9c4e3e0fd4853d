// Package twitter is the remote collaborator for the pruner: a small REST
// client for the account's timeline, likes, deletes and unlikes.
//
// Requests are signed with OAuth 1.0a user context (github.com/dghubble/oauth1)
// and optionally paced through a ratelimit.Limiter. Failures come back as
// *errors.Error values; a missing tweet (HTTP 404 or Twitter error code 144)
// is always errors.ErrorTypeNotFound so the retry layer can stop early.
//
// Usage:
//
//	client := twitter.NewClient(&cfg.Twitter, log,
//	    twitter.WithPageSize(cfg.Pagination.BatchSize),
//	    twitter.WithLimiter(limiter),
//	)
//	page, err := client.FetchPostsPage(ctx, models.Cursor{})
package twitter
