// Package retry re-runs operations that fail with transient errors.
//
// Media downloads use it when more than one attempt is configured:
//
//	cfg := &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		Logger:      log,
//	}
//	data, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
//		return client.Download(ctx, url)
//	}, cfg)
//
// Network, rate limit and 5xx failures are retried; auth, 4xx and
// context cancellation are returned immediately.
package retry
