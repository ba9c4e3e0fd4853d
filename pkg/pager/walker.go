package pager

import (
	"context"
	"errors"
	"fmt"

	"tweetpruner/pkg/logger"
	"tweetpruner/pkg/models"
	"tweetpruner/pkg/retry"
)

// ErrNoProgress is returned when a page does not move the cursor backward.
// A well-behaved listing never triggers it.
var ErrNoProgress = errors.New("page did not advance the cursor")

// FetchFunc returns the page of items at or below cursor, newest first.
// An empty page means the listing is exhausted.
type FetchFunc func(ctx context.Context, cursor models.Cursor) ([]models.Item, error)

// VisitFunc is called once per item in the order pages return them
type VisitFunc func(item *models.Item)

// Stats summarises one walk
type Stats struct {
	Pages   int
	Visited int
	// Aborted is set when a page fetch hit not-found and the walk stopped early
	Aborted bool
	// Cursor is the last cursor requested
	Cursor models.Cursor
}

// Walker turns a backward-paginated listing into one exhaustive traversal
type Walker struct {
	retrier *retry.Retrier
	logger  logger.Logger
}

// New creates a Walker that fetches every page through retrier
func New(retrier *retry.Retrier, log logger.Logger) *Walker {
	if retrier == nil {
		retrier = retry.NewRetrier(nil)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Walker{retrier: retrier, logger: log}
}

// Walk fetches pages starting from the newest, feeding each item to visit,
// until a page comes back empty. After each page the cursor moves to one
// below the smallest id seen.
//
// A fetch that aborts (not-found) ends the walk without error. A fetch that
// exhausts its retries returns the error along with the stats so far.
func (w *Walker) Walk(ctx context.Context, label string, fetch FetchFunc, visit VisitFunc) (Stats, error) {
	var stats Stats
	cursor := models.Cursor{}
	log := w.logger.WithField("walk", label)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.Cursor = cursor
		cfg := w.retrier.WithContext(ctx).WithLabel(fmt.Sprintf("fetch %s page (%s)", label, cursor)).Config()
		page, outcome, err := retry.DoWithResult(func() ([]models.Item, error) {
			return fetch(ctx, cursor)
		}, &cfg)
		if err != nil {
			log.WithError(err).WithField("cursor", cursor.String()).Error("Page fetch failed")
			return stats, fmt.Errorf("fetch %s page at %s: %w", label, cursor, err)
		}
		if outcome == retry.Aborted {
			log.InfoWithFields("Listing not found, stopping walk", map[string]interface{}{
				"cursor": cursor.String(),
				"pages":  stats.Pages,
			})
			stats.Aborted = true
			return stats, nil
		}

		stats.Pages++
		if len(page) == 0 {
			log.DebugWithFields("Empty page, walk complete", map[string]interface{}{
				"pages":   stats.Pages,
				"visited": stats.Visited,
			})
			return stats, nil
		}

		minID := page[0].ID
		for i := range page {
			visit(&page[i])
			stats.Visited++
			if page[i].ID < minID {
				minID = page[i].ID
			}
		}

		next := models.Before(minID)
		if cursor.Valid && next.MaxID >= cursor.MaxID {
			return stats, fmt.Errorf("fetch %s page at %s: %w", label, cursor, ErrNoProgress)
		}

		log.DebugWithFields("Moving to next page", map[string]interface{}{
			"page_size": len(page),
			"min_id":    minID,
			"cursor":    next.String(),
		})
		cursor = next
	}
}
