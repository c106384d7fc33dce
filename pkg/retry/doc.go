// Package retry runs operations that may fail transiently.
//
// Do takes a Config describing how many attempts to make,
// how long to wait between them (ExponentialBackoff or ConstantBackoff) and
// which errors are worth retrying. Typed errors from pkg/errors are retried
// according to their class; context cancellation is never retried.
//
//	err := retry.Do(func() error {
//		return page.Reload(ctx)
//	}, retry.DefaultConfig())
//
// Wait is the context-aware sleep shared with the pacing code.
package retry
