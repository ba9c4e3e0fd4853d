// Package pruner runs the pruning pass for one account.
//
// A pass has two sweeps. The posts sweep walks the account's own timeline
// from newest to oldest and scores every item with the retention policy;
// the pinned item and anything listed as permanent is never touched. The
// likes sweep does the same for liked items. Each sweep first collects the
// full removal set, then hands it to the remover worker pool, which issues
// one retry-wrapped delete or unlike per id and reports the outcome.
//
// Usage:
//
//	client := twitter.NewClient(&cfg.Twitter, log)
//	p, err := pruner.New(cfg, client, log)
//	if err != nil {
//	    return err
//	}
//	summary, err := p.Run(ctx)
//
// A removal that fails after all its retries is counted in Report.Failed
// and never stops the others. With Removal.DryRun set the sweeps only log
// what they would remove.
package pruner
