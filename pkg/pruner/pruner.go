package pruner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tweetpruner/internal/remover"
	"tweetpruner/pkg/config"
	errs "tweetpruner/pkg/errors"
	"tweetpruner/pkg/logger"
	"tweetpruner/pkg/models"
	"tweetpruner/pkg/pager"
	"tweetpruner/pkg/retention"
	"tweetpruner/pkg/retry"
)

const (
	SweepPosts = "posts"
	SweepLikes = "likes"

	// progressEvery is how many finished removals pass between progress lines
	progressEvery = 25
)

// Report holds the counts for one sweep
type Report struct {
	Sweep     string
	Pages     int
	Visited   int
	Permanent int
	Selected  int
	// Removed counts successful deletes or unlikes
	Removed     int
	AlreadyGone int
	Failed      int
	// Skipped counts selected items never attempted, e.g. after Ctrl-C
	Skipped int
	// FailedIDs lists the ids that could not be removed, ascending
	FailedIDs []int64
	DryRun    bool
	// Aborted is set when the listing itself reported not-found
	Aborted  bool
	Duration time.Duration
}

// Summary holds both sweeps of a run; a skipped sweep is nil
type Summary struct {
	Posts *Report
	Likes *Report
}

// Failed returns the failed removal count across both sweeps
func (s *Summary) Failed() int {
	n := 0
	for _, r := range []*Report{s.Posts, s.Likes} {
		if r != nil {
			n += r.Failed
		}
	}
	return n
}

// Option configures a Pruner
type Option func(*Pruner)

// WithClock overrides the time source used to age items
func WithClock(now func() time.Time) Option {
	return func(p *Pruner) {
		p.now = now
	}
}

// WithRetrier overrides the retrier built from the retry configuration
func WithRetrier(r *retry.Retrier) Option {
	return func(p *Pruner) {
		p.retrier = r
	}
}

// Pruner walks the account's posts and likes, selects what has outlived
// its allowed age and removes it
type Pruner struct {
	client  Client
	policy  *retention.Policy
	retrier *retry.Retrier
	config  *config.Config
	logger  logger.Logger
	now     func() time.Time
}

// New creates a Pruner for the account named in cfg.Twitter.ScreenName
func New(cfg *config.Config, client Client, log logger.Logger, opts ...Option) (*Pruner, error) {
	if cfg == nil {
		return nil, errors.New("pruner: config is required")
	}
	if client == nil {
		return nil, errors.New("pruner: client is required")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	policy, err := retention.New(&cfg.Retention, cfg.Twitter.ScreenName)
	if err != nil {
		return nil, fmt.Errorf("failed to build retention policy: %w", err)
	}

	p := &Pruner{
		client: client,
		policy: policy,
		config: cfg,
		logger: log.WithField("component", "pruner"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.retrier == nil {
		p.retrier = retry.NewRetrier(retry.NewConfig(
			cfg.Retry.MinDelay,
			cfg.Retry.MaxDelay,
			cfg.Retry.MaxTries,
			log.WithField("component", "retry"),
		))
	}
	return p, nil
}

// Policy exposes the retention policy, including any pinned id added during a run
func (p *Pruner) Policy() *retention.Policy {
	return p.policy
}

// Run prunes posts then likes, honouring the skip flags. A failed sweep does
// not prevent the other one; their errors are joined.
func (p *Pruner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	var runErrs []error

	if p.config.Retention.SkipPosts {
		p.logger.Info("Skipping posts sweep")
	} else {
		report, err := p.PrunePosts(ctx)
		summary.Posts = report
		if err != nil {
			runErrs = append(runErrs, err)
		}
	}

	if p.config.Retention.SkipLikes {
		p.logger.Info("Skipping likes sweep")
	} else {
		report, err := p.PruneLikes(ctx)
		summary.Likes = report
		if err != nil {
			runErrs = append(runErrs, err)
		}
	}

	return summary, errors.Join(runErrs...)
}

// PrunePosts deletes authored items older than their allowed age.
// The pinned item is made permanent first; if it cannot be determined for a
// reason other than not-found, nothing is deleted.
func (p *Pruner) PrunePosts(ctx context.Context) (*Report, error) {
	report := &Report{Sweep: SweepPosts, DryRun: p.config.Removal.DryRun}
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	if err := p.protectPinned(ctx); err != nil {
		return report, err
	}

	now := p.now()
	log := p.logger.WithField("sweep", SweepPosts)
	selected := models.NewRemovalSet()

	walker := pager.New(p.retrier, log)
	stats, err := walker.Walk(ctx, SweepPosts, p.client.FetchPostsPage, func(item *models.Item) {
		decision := p.policy.EvaluatePost(item, now)
		if decision.Permanent {
			report.Permanent++
			log.DebugWithFields("Keeping permanent post", map[string]interface{}{
				"id":  item.ID,
				"url": item.Permalink(),
			})
			return
		}
		if decision.Remove && selected.Add(item.ID) {
			p.logSelection(log, item, decision)
		}
	})
	report.Pages, report.Visited, report.Aborted = stats.Pages, stats.Visited, stats.Aborted
	report.Selected = selected.Len()
	if err != nil {
		return report, fmt.Errorf("posts sweep: %w", err)
	}

	if err := p.removeAll(ctx, log, remover.KindPost, selected.IDs(), report); err != nil {
		return report, fmt.Errorf("posts sweep: %w", err)
	}
	report.Duration = time.Since(start)
	p.logReport(report)
	return report, nil
}

// PruneLikes unlikes liked items older than their allowed age
func (p *Pruner) PruneLikes(ctx context.Context) (*Report, error) {
	report := &Report{Sweep: SweepLikes, DryRun: p.config.Removal.DryRun}
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	now := p.now()
	log := p.logger.WithField("sweep", SweepLikes)
	selected := models.NewRemovalSet()

	walker := pager.New(p.retrier, log)
	stats, err := walker.Walk(ctx, SweepLikes, p.client.FetchLikedPage, func(item *models.Item) {
		decision := p.policy.EvaluateLike(item, now)
		if decision.Remove && selected.Add(item.ID) {
			p.logSelection(log, item, decision)
		}
	})
	report.Pages, report.Visited, report.Aborted = stats.Pages, stats.Visited, stats.Aborted
	report.Selected = selected.Len()
	if err != nil {
		return report, fmt.Errorf("likes sweep: %w", err)
	}

	if err := p.removeAll(ctx, log, remover.KindLike, selected.IDs(), report); err != nil {
		return report, fmt.Errorf("likes sweep: %w", err)
	}
	report.Duration = time.Since(start)
	p.logReport(report)
	return report, nil
}

type pinnedLookup struct {
	id int64
	ok bool
}

func (p *Pruner) protectPinned(ctx context.Context) error {
	handle := p.config.Twitter.ScreenName
	cfg := p.retrier.WithContext(ctx).WithLabel("resolve pinned tweet").Config()

	pinned, outcome, err := retry.DoWithResult(func() (pinnedLookup, error) {
		id, ok, err := p.client.ResolvePinnedItemID(ctx, handle)
		return pinnedLookup{id: id, ok: ok}, err
	}, &cfg)

	switch {
	case err != nil && !errs.IsNotFound(err):
		p.logger.WithError(err).WithField("handle", handle).Error("Failed to resolve pinned tweet")
		return fmt.Errorf("resolve pinned tweet: %w", err)
	case err != nil || outcome == retry.Aborted:
		p.logger.WithField("handle", handle).Warn("Account not found while resolving pinned tweet")
	case pinned.ok:
		p.policy.AddPermanent(pinned.id)
		p.logger.DebugWithFields("Pinned tweet is permanent", map[string]interface{}{
			"id": pinned.id,
		})
	}
	return nil
}

func (p *Pruner) logSelection(log logger.Logger, item *models.Item, decision retention.Decision) {
	log.InfoWithFields(item.DisplayText(), map[string]interface{}{
		"url":          item.Permalink(),
		"likes":        item.Likes,
		"reposts":      decision.EffectiveReposts,
		"quotes":       item.QuoteCount(),
		"age_days":     int(decision.Age / (24 * time.Hour)),
		"allowed_days": decision.AllowedDays,
	})
}

// removeAll fans one retry-wrapped removal per id out over the worker pool
// and waits for every result
func (p *Pruner) removeAll(ctx context.Context, log logger.Logger, kind remover.Kind, ids []int64, report *Report) error {
	total := len(ids)
	if total == 0 {
		return nil
	}
	if p.config.Removal.DryRun {
		log.InfoWithFields("Dry run, nothing removed", map[string]interface{}{
			"selected": total,
		})
		report.Skipped = total
		return nil
	}

	pool := remover.NewWorkerPool(ctx, p.config.Removal.Concurrency, p.client, p.retrier, log)
	pool.Start()

	failed := models.NewRemovalSet()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		done := 0
		for result := range pool.Results() {
			done++
			switch result.Status {
			case remover.Removed:
				report.Removed++
			case remover.AlreadyGone:
				report.AlreadyGone++
			default:
				report.Failed++
				failed.Add(result.Job.ID)
			}
			if done%progressEvery == 0 || done == total {
				logger.LogSweepProgress(log, report.Sweep, done, total)
			}
		}
	}()

	logger.LogSweepProgress(log, report.Sweep, 0, total)

	var submitErr error
	for _, id := range ids {
		if err := pool.Submit(remover.Job{Kind: kind, ID: id}); err != nil {
			submitErr = err
			break
		}
	}

	pool.Stop()
	wg.Wait()
	report.FailedIDs = failed.Sorted()

	report.Skipped = total - report.Removed - report.AlreadyGone - report.Failed
	if err := ctx.Err(); err != nil {
		return err
	}
	return submitErr
}

func (p *Pruner) logReport(report *Report) {
	logger.LogMetrics(p.logger, report.Sweep+" sweep", map[string]interface{}{
		"pages":        report.Pages,
		"visited":      report.Visited,
		"permanent":    report.Permanent,
		"selected":     report.Selected,
		"removed":      report.Removed,
		"already_gone": report.AlreadyGone,
		"failed":       report.Failed,
		"skipped":      report.Skipped,
		"failed_ids":   report.FailedIDs,
		"dry_run":      report.DryRun,
		"duration":     report.Duration,
	})
}
