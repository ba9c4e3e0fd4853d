// Package retry runs remote calls under a bounded attempt budget with
// log-linear backoff.
//
// Every attempt but the last is guarded. A not-found error ends the loop
// with Outcome Aborted, since the item the call was about is already gone.
// A cancelled context stops at once. Every other failure sleeps and tries
// again. The last attempt is not guarded, so its error (whatever
// kind) reaches the caller.
//
// Basic usage:
//
//	cfg := retry.NewConfig(time.Second, time.Minute, 5, log)
//	cfg.Context = ctx
//	outcome, err := retry.Do(func() error {
//		return client.DeletePost(ctx, id)
//	}, cfg)
//	switch {
//	case err != nil:
//		// give up on this item
//	case outcome == retry.Aborted:
//		// already deleted elsewhere
//	}
//
// A Retrier carries a Config and derives variants with WithContext,
// and WithLabel.
package retry
