package utils

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping between tries with doubling
// backoff starting at base. It stops early when fn succeeds, when shouldRetry
// rejects the error, or when the context is done. The last error is returned.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func() error, shouldRetry func(error) bool) error {
	var err error
	delay := base
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
