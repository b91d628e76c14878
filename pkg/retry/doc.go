// Package retry runs an operation again after a failure, waiting between
// attempts according to a BackoffStrategy.
//
// The portal detail fetch uses three attempts with a doubling delay that
// starts at 500ms, so a failing call waits 500ms, then 1s, and gives up
// after the third attempt without a further wait:
//
//	detail, err := retry.DoWithResult(func() (*invoice.Detail, error) {
//		return c.fetchOnce(ctx, id, token)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.NewExponentialBackoff(500 * time.Millisecond),
//		Context:     ctx,
//		Logger:      log,
//	})
//
// Waits observe Config.Context; a cancelled context ends the loop and is
// not retried.
package retry
