package engine

import (
	"context"
	"errors"
	"fmt"
)

// Externally visible error kinds. Dedup collisions are intentionally absent:
// a duplicate upload is resolved into a success, never surfaced.
var (
	// ErrInvalidPayload rejects empty or oversized payloads.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnsupportedType rejects mime types outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported media type")
	// ErrNotFound covers both an unknown key and a disabled record.
	ErrNotFound = errors.New("image not found")
	// ErrStorageUnavailable marks a transient backend failure that survived
	// internal retries; the caller may retry the whole operation.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrQuotaExceeded is a capacity limit; retrying cannot help.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrTimeout marks an external call that hit its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// wrapTimeout folds context deadline errors into the engine taxonomy so that
// no caller has to know about context internals.
func wrapTimeout(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, op)
	}
	return err
}
